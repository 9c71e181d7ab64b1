package models

import (
	"fmt"
)

type Config struct {
	PortKernel        int    `json:"port_kernel"`
	PageSize          int    `json:"page_size"`
	NumPhysPages      int    `json:"num_phys_pages"`
	ReplacementPolicy string `json:"replacement_policy"`
	RandomSeed        int64  `json:"random_seed"`
	UserStackSize     int    `json:"user_stack_size"`
	MaxProcesses      int    `json:"max_processes"`
	MaxChildren       int    `json:"max_children"`
	ReadOnlyCode      bool   `json:"read_only_code"`
	ProgramsPath      string `json:"programs_path"`
	LogLevel          string `json:"log_level"`
}

var KernelConfig *Config

// Validate revisa los valores que el kernel necesita para arrancar.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size debe ser positivo, se obtuvo %d", c.PageSize)
	}
	if c.PageSize%4 != 0 {
		return fmt.Errorf("page_size debe ser múltiplo de 4, se obtuvo %d", c.PageSize)
	}
	if c.NumPhysPages <= 0 {
		return fmt.Errorf("num_phys_pages debe ser positivo, se obtuvo %d", c.NumPhysPages)
	}
	if c.UserStackSize < 0 {
		return fmt.Errorf("user_stack_size no puede ser negativo, se obtuvo %d", c.UserStackSize)
	}
	if c.MaxProcesses <= 0 {
		return fmt.Errorf("max_processes debe ser positivo, se obtuvo %d", c.MaxProcesses)
	}
	if c.MaxChildren <= 0 {
		return fmt.Errorf("max_children debe ser positivo, se obtuvo %d", c.MaxChildren)
	}
	if _, err := ParseReplacementPolicy(c.ReplacementPolicy); err != nil {
		return err
	}
	return nil
}

// Costos en ticks del reloj simulado.
const (
	UserTick   = 1  // por instrucción de usuario
	SystemTick = 10 // por syscall atendida
)

// DefaultPriority es la prioridad de los procesos del batch que no la indican.
const DefaultPriority = 100

// ReplacementPolicy es el algoritmo de reemplazo de marcos. FIFO, LRU y LRU_CLOCK existen en la
// configuración pero todavía no están implementados.
type ReplacementPolicy int

const (
	PolicyNone ReplacementPolicy = iota
	PolicyRandom
	PolicyFIFO
	PolicyLRU
	PolicyLRUClock
)

var policyNames = map[ReplacementPolicy]string{
	PolicyNone:     "NONE",
	PolicyRandom:   "RANDOM",
	PolicyFIFO:     "FIFO",
	PolicyLRU:      "LRU",
	PolicyLRUClock: "LRU_CLOCK",
}

func (p ReplacementPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
}

// Implemented indica si el kernel sabe ejecutar la política.
func (p ReplacementPolicy) Implemented() bool {
	return p == PolicyNone || p == PolicyRandom
}

func ParseReplacementPolicy(name string) (ReplacementPolicy, error) {
	for policy, policyName := range policyNames {
		if policyName == name {
			return policy, nil
		}
	}
	return PolicyNone, fmt.Errorf("política de reemplazo desconocida: %q", name)
}
