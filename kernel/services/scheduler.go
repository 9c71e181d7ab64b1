package services

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/list"
)

// Scheduler reparte la única CPU simulada entre los hilos. Cada hilo corre en su propia goroutine
// pero solo avanza la que tiene el turno: al ceder la CPU se despierta a la siguiente y la actual
// queda esperando en su canal wake.
type Scheduler struct {
	interrupt *Interrupt
	stats     *models.Stats
	machine   *machine.Machine

	ready    *list.ArrayList[*PCB]
	sleeping *list.ArrayList[*PCB] // ordenada por tick de despertar

	current *PCB

	halted   chan struct{}
	haltOnce sync.Once
	haltErr  error

	// OnSwitch se llama en cada cambio de contexto con el hilo entrante.
	OnSwitch func(next *PCB)
}

func NewScheduler(interrupt *Interrupt, stats *models.Stats, m *machine.Machine) *Scheduler {
	return &Scheduler{
		interrupt: interrupt,
		stats:     stats,
		machine:   m,
		ready:     &list.ArrayList[*PCB]{},
		sleeping:  &list.ArrayList[*PCB]{},
		halted:    make(chan struct{}),
	}
}

// ReadyToRun encola al hilo en ready.
func (s *Scheduler) ReadyToRun(pcb *PCB) {
	transitionState(pcb, models.StateReady)
	pcb.readySince = s.stats.TotalTicks()
	s.ready.Add(pcb)
}

// Start le da la CPU al primer hilo listo. Quien llama no es un hilo simulado y no se bloquea.
func (s *Scheduler) Start() error {
	next := s.findNextToRun()
	if next == nil {
		return models.ErrNoProcesses
	}
	s.run(next)
	return nil
}

// Yield cede la CPU si hay otro hilo listo.
func (s *Scheduler) Yield() {
	if s.ready.Size() == 0 {
		return
	}

	restore := s.interrupt.Disable()
	defer restore()

	next, err := s.ready.Dequeue()
	if err != nil {
		return
	}

	old := s.current
	s.ReadyToRun(old)
	s.run(next)
}

// Sleep bloquea al hilo actual hasta que alguien lo vuelva a poner en ready. Se llama con las
// interrupciones deshabilitadas, después de dejar registrado a quién hay que despertar.
func (s *Scheduler) Sleep() {
	if s.interrupt.Level() != IntOff {
		panic("Sleep con interrupciones habilitadas")
	}

	transitionState(s.current, models.StateBlocked)
	next := s.findNextToRun()
	if next == nil {
		s.halt(fmt.Errorf("%w: todos los hilos están bloqueados", models.ErrNoProcesses))
		s.park(s.current)
		return
	}
	s.run(next)
}

// SleepUntil bloquea al hilo actual hasta el tick wakeAt.
func (s *Scheduler) SleepUntil(wakeAt int64) {
	restore := s.interrupt.Disable()
	defer restore()

	pcb := s.current
	pcb.wakeAt = wakeAt
	s.sleeping.InsertSorted(pcb, func(a, b *PCB) bool { return a.wakeAt < b.wakeAt })
	slog.Debug(fmt.Sprintf("## (%d) - Duerme hasta el tick %d", pcb.PID, wakeAt))
	s.Sleep()
}

// Finish le pasa la CPU a otro hilo cuando el actual terminó. Es lo último que hace la goroutine
// del hilo.
func (s *Scheduler) Finish() {
	s.interrupt.SetLevel(IntOff)

	transitionState(s.current, models.StateFinished)
	next := s.findNextToRun()
	if next == nil {
		s.halt(fmt.Errorf("%w: quedan procesos bloqueados sin nadie que los despierte", models.ErrNoProcesses))
		return
	}
	s.run(next)
}

// OneTick avanza el reloj una instrucción de usuario. Con interrupciones habilitadas despierta a
// los hilos cuyo plazo venció.
func (s *Scheduler) OneTick() {
	s.stats.AddUserTicks(models.UserTick)
	if s.current != nil {
		s.current.InstrCount++
	}
	if s.interrupt.Level() == IntOn {
		s.wakeSleepers()
	}
}

// ReadyPIDs devuelve los PIDs de ready en el orden en que van a correr.
func (s *Scheduler) ReadyPIDs() []int {
	return pids(s.ready.GetAll())
}

// SleepingPIDs devuelve los PIDs dormidos ordenados por tick de despertar.
func (s *Scheduler) SleepingPIDs() []int {
	return pids(s.sleeping.GetAll())
}

func pids(queue []*PCB) []int {
	result := make([]int, 0, len(queue))
	for _, pcb := range queue {
		result = append(result, pcb.PID)
	}
	return result
}

func (s *Scheduler) Current() *PCB {
	return s.current
}

// Halted se cierra cuando la máquina se detiene.
func (s *Scheduler) Halted() <-chan struct{} {
	return s.halted
}

// HaltErr es el motivo de la detención, nil si fue normal.
func (s *Scheduler) HaltErr() error {
	return s.haltErr
}

func (s *Scheduler) halt(err error) {
	s.haltOnce.Do(func() {
		s.haltErr = err
		if err != nil {
			slog.Error(fmt.Sprintf("Máquina detenida: %v", err))
		} else {
			slog.Info("Máquina detenida")
		}
		close(s.halted)
	})
}

// findNextToRun saca el primer hilo de ready. Si no hay ninguno pero hay dormidos, la CPU queda
// ociosa hasta que venza el primero.
func (s *Scheduler) findNextToRun() *PCB {
	for {
		if next, err := s.ready.Dequeue(); err == nil {
			return next
		}

		first, err := s.sleeping.Get(0)
		if err != nil {
			return nil
		}
		if now := s.stats.TotalTicks(); now < first.wakeAt {
			s.stats.AddIdleTicks(first.wakeAt - now)
		}
		s.wakeSleepers()
	}
}

func (s *Scheduler) wakeSleepers() {
	now := s.stats.TotalTicks()
	for {
		first, err := s.sleeping.Get(0)
		if err != nil || first.wakeAt > now {
			return
		}
		s.sleeping.Dequeue()
		slog.Debug(fmt.Sprintf("## (%d) - Se despierta en el tick %d", first.PID, now))
		s.ReadyToRun(first)
	}
}

// run hace el cambio de contexto al hilo next. Si el hilo saliente no terminó, su goroutine queda
// bloqueada hasta que le vuelva a tocar.
func (s *Scheduler) run(next *PCB) {
	old := s.current
	now := s.stats.TotalTicks()

	if old != nil {
		s.stats.RecordBurst(now - old.burstStart)
		if old.State != models.StateFinished && old.Space != nil {
			old.UserRegisters = s.machine.Registers()
			old.Space.SaveState()
		}
	}

	if next.State == models.StateReady {
		next.WaitingTime += now - next.readySince
	}
	transitionState(next, models.StateRunning)
	next.burstStart = now
	s.current = next

	if next.Space != nil {
		s.machine.SetRegisters(next.UserRegisters)
		next.Space.RestoreState()
	}
	if s.OnSwitch != nil {
		s.OnSwitch(next)
	}

	if old == next {
		return
	}

	// Después de despertar a next ya no se puede leer el estado de old.
	parkOld := old != nil && old.State != models.StateFinished

	if !next.started {
		next.started = true
		go s.launch(next)
	} else {
		next.wake <- struct{}{}
	}

	if parkOld {
		s.park(old)
	}
}

func (s *Scheduler) launch(pcb *PCB) {
	s.interrupt.SetLevel(IntOn)
	pcb.body()
}

// park bloquea la goroutine del hilo hasta que le devuelvan la CPU. Si la máquina se detiene
// mientras espera, la goroutine termina.
func (s *Scheduler) park(pcb *PCB) {
	select {
	case <-pcb.wake:
	case <-s.halted:
		runtime.Goexit()
	}
}
