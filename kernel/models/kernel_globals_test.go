package models

import (
	"testing"
)

func validConfig() Config {
	return Config{
		PageSize:          128,
		NumPhysPages:      32,
		ReplacementPolicy: "RANDOM",
		UserStackSize:     1024,
		MaxProcesses:      64,
		MaxChildren:       16,
	}
}

func TestConfig_Validate(t *testing.T) {
	config := validConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	config.PageSize = 0
	if err := config.Validate(); err == nil {
		t.Errorf("Expected error for page_size 0")
	}

	config = validConfig()
	config.PageSize = 130
	if err := config.Validate(); err == nil {
		t.Errorf("Expected error for a page size that is not word aligned")
	}

	config = validConfig()
	config.ReplacementPolicy = "OPTIMO"
	if err := config.Validate(); err == nil {
		t.Errorf("Expected error for unknown policy")
	}
}

func TestParseReplacementPolicy(t *testing.T) {
	policy, err := ParseReplacementPolicy("LRU_CLOCK")
	if err != nil || policy != PolicyLRUClock {
		t.Errorf("Expected LRU_CLOCK, got %v %v", policy, err)
	}
	if policy.Implemented() {
		t.Errorf("Expected LRU_CLOCK not to be implemented")
	}
	if !PolicyRandom.Implemented() || !PolicyNone.Implemented() {
		t.Errorf("Expected NONE and RANDOM to be implemented")
	}
	if PolicyFIFO.String() != "FIFO" {
		t.Errorf("Expected FIFO, got %s", PolicyFIFO.String())
	}
}

func TestStats_RecordCompletion(t *testing.T) {
	stats := NewStats()
	stats.RecordCompletion(10, 100)
	stats.RecordCompletion(30, 50)
	stats.RecordBurst(0)
	stats.RecordBurst(7)

	c := stats.Snapshot()
	if c.ThreadsCompleted != 2 || c.MinWaitingTime != 10 || c.MaxWaitingTime != 30 {
		t.Errorf("Unexpected waiting stats %+v", c)
	}
	if c.MinThreadCompletionTime != 50 || c.MaxThreadCompletionTime != 100 || c.SquareThreadCompletionTime != 12500 {
		t.Errorf("Unexpected completion stats %+v", c)
	}
	if c.NumCpuBursts != 1 || c.MinCpuBurst != 7 {
		t.Errorf("Expected empty bursts to be ignored, got %+v", c)
	}

	stats.Log()
}
