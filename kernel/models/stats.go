package models

import (
	"fmt"
	"log/slog"
	"sync"
)

// Counters son las métricas acumuladas de la simulación.
type Counters struct {
	TotalTicks  int64 `json:"total_ticks"`
	IdleTicks   int64 `json:"idle_ticks"`
	SystemTicks int64 `json:"system_ticks"`
	UserTicks   int64 `json:"user_ticks"`

	NumPageFaults          int64 `json:"num_page_faults"`
	NumPageEvictions       int64 `json:"num_page_evictions"`
	NumConsoleCharsWritten int64 `json:"num_console_chars_written"`

	NumCpuBursts  int64 `json:"num_cpu_bursts"`
	TotalCpuBurst int64 `json:"total_cpu_burst"`
	MinCpuBurst   int64 `json:"min_cpu_burst"`
	MaxCpuBurst   int64 `json:"max_cpu_burst"`

	ThreadsCompleted           int64 `json:"threads_completed"`
	TotalWaitingTime           int64 `json:"total_waiting_time"`
	MinWaitingTime             int64 `json:"min_waiting_time"`
	MaxWaitingTime             int64 `json:"max_waiting_time"`
	TotalThreadCompletionTime  int64 `json:"total_thread_completion_time"`
	SquareThreadCompletionTime int64 `json:"square_thread_completion_time"`
	MinThreadCompletionTime    int64 `json:"min_thread_completion_time"`
	MaxThreadCompletionTime    int64 `json:"max_thread_completion_time"`
}

// Stats protege los contadores: los actualiza el hilo simulado que tiene la CPU y los lee el
// servidor de estado.
type Stats struct {
	mu       sync.Mutex
	counters Counters
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

func (s *Stats) TotalTicks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.TotalTicks
}

func (s *Stats) AddUserTicks(ticks int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.TotalTicks += ticks
	s.counters.UserTicks += ticks
}

func (s *Stats) AddSystemTicks(ticks int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.TotalTicks += ticks
	s.counters.SystemTicks += ticks
}

func (s *Stats) AddIdleTicks(ticks int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.TotalTicks += ticks
	s.counters.IdleTicks += ticks
}

func (s *Stats) AddPageFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.NumPageFaults++
}

func (s *Stats) AddPageEviction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.NumPageEvictions++
}

func (s *Stats) AddConsoleCharWritten() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.NumConsoleCharsWritten++
}

// RecordBurst registra una ráfaga de CPU. Las ráfagas vacías no cuentan.
func (s *Stats) RecordBurst(burst int64) {
	if burst <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.counters
	if c.NumCpuBursts == 0 || burst < c.MinCpuBurst {
		c.MinCpuBurst = burst
	}
	if burst > c.MaxCpuBurst {
		c.MaxCpuBurst = burst
	}
	c.NumCpuBursts++
	c.TotalCpuBurst += burst
}

// RecordCompletion registra el tiempo de espera en ready y el tiempo total de un hilo que terminó.
func (s *Stats) RecordCompletion(waiting int64, completion int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.counters
	if c.ThreadsCompleted == 0 || waiting < c.MinWaitingTime {
		c.MinWaitingTime = waiting
	}
	if waiting > c.MaxWaitingTime {
		c.MaxWaitingTime = waiting
	}
	if c.ThreadsCompleted == 0 || completion < c.MinThreadCompletionTime {
		c.MinThreadCompletionTime = completion
	}
	if completion > c.MaxThreadCompletionTime {
		c.MaxThreadCompletionTime = completion
	}
	c.ThreadsCompleted++
	c.TotalWaitingTime += waiting
	c.TotalThreadCompletionTime += completion
	c.SquareThreadCompletionTime += completion * completion
}

// Log escribe el resumen de la simulación al detener la máquina.
func (s *Stats) Log() {
	c := s.Snapshot()

	busy := c.TotalTicks - c.IdleTicks
	slog.Info(fmt.Sprintf("Tiempo de CPU ocupada: %d", busy))
	slog.Info(fmt.Sprintf("Tiempo total de ejecución: %d", c.TotalTicks))
	if c.TotalTicks > 0 {
		slog.Info(fmt.Sprintf("Utilización de CPU: %.3f", float64(busy)/float64(c.TotalTicks)))
	}
	if c.NumCpuBursts > 0 {
		slog.Info(fmt.Sprintf("Ráfagas de CPU: promedio %d, máxima %d, mínima %d, cantidad %d",
			c.TotalCpuBurst/c.NumCpuBursts, c.MaxCpuBurst, c.MinCpuBurst, c.NumCpuBursts))
	}
	if c.ThreadsCompleted > 0 {
		average := c.TotalThreadCompletionTime / c.ThreadsCompleted
		square := c.SquareThreadCompletionTime / c.ThreadsCompleted
		slog.Info(fmt.Sprintf("Tiempo de espera: promedio %d, máximo %d, mínimo %d",
			c.TotalWaitingTime/c.ThreadsCompleted, c.MaxWaitingTime, c.MinWaitingTime))
		slog.Info(fmt.Sprintf("Tiempo de finalización: promedio %d, máximo %d, mínimo %d, varianza %d",
			average, c.MaxThreadCompletionTime, c.MinThreadCompletionTime, square-average*average))
	}
	slog.Info(fmt.Sprintf("Hilos finalizados: %d", c.ThreadsCompleted))
	slog.Info(fmt.Sprintf("Ticks: total %d, idle %d, sistema %d, usuario %d",
		c.TotalTicks, c.IdleTicks, c.SystemTicks, c.UserTicks))
	slog.Info(fmt.Sprintf("Consola: caracteres escritos %d", c.NumConsoleCharsWritten))
	slog.Info(fmt.Sprintf("Paginación: fallos %d, desalojos %d", c.NumPageFaults, c.NumPageEvictions))
}
