package semaphore

import (
	"testing"
	"time"
)

// waitReturns indica si Wait volvió antes del timeout.
func waitReturns(s *Semaphore, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestSemaphore_WaitSignal(t *testing.T) {
	s := NewSemaphore(1, 1)

	if !waitReturns(s, time.Second) {
		t.Fatalf("Expected the first Wait to take the free unit")
	}

	blocked := make(chan struct{})
	go func() {
		s.Wait()
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatalf("Expected Wait to block while the unit is taken")
	case <-time.After(50 * time.Millisecond):
	}

	s.Signal()
	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Errorf("Expected Signal to release the blocked Wait")
	}
}

func TestSemaphore_InitialZero(t *testing.T) {
	s := NewSemaphore(1, 0)

	if waitReturns(s, 50*time.Millisecond) {
		t.Fatalf("Expected semaphore to start taken")
	}
}

func TestSemaphore_SignalDoesNotExceedCapacity(t *testing.T) {
	s := NewSemaphore(1, 1)

	s.Signal() // no supera la capacidad
	if !waitReturns(s, time.Second) {
		t.Fatalf("Expected one unit available")
	}
	if waitReturns(s, 50*time.Millisecond) {
		t.Errorf("Expected only one unit after an extra Signal")
	}
}
