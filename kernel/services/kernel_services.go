package services

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
)

// Kernel junta la máquina simulada con la memoria virtual, la tabla de procesos y el planificador.
type Kernel struct {
	config    *models.Config
	machine   *machine.Machine
	stats     *models.Stats
	interrupt *Interrupt
	scheduler *Scheduler
	frames    *FrameAllocator
	processes *ProcessTable
	console   *Console
	loader    FileSystem

	statusMu sync.RWMutex
	status   models.KernelStatus
}

func NewKernel(config *models.Config, loader FileSystem, out io.Writer) (*Kernel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	policy, err := models.ParseReplacementPolicy(config.ReplacementPolicy)
	if err != nil {
		return nil, err
	}

	stats := models.NewStats()
	m := machine.NewMachine(config.PageSize, config.NumPhysPages)

	frames, err := NewFrameAllocator(policy, m, stats, config.RandomSeed)
	if err != nil {
		return nil, err
	}

	interrupt := &Interrupt{}
	k := &Kernel{
		config:    config,
		machine:   m,
		stats:     stats,
		interrupt: interrupt,
		scheduler: NewScheduler(interrupt, stats, m),
		frames:    frames,
		processes: NewProcessTable(config.MaxProcesses, config.MaxChildren),
		console:   NewConsole(out, stats),
		loader:    loader,
	}

	m.SetExceptionHandler(k)
	m.OnTick = k.scheduler.OneTick
	k.scheduler.OnSwitch = func(*PCB) { k.publishStatus() }

	slog.Debug("Kernel inicializado", "politica", policy.String(), "page_size", config.PageSize, "marcos", config.NumPhysPages)
	return k, nil
}

// StartProcess carga un programa en un proceso nuevo y lo deja en ready.
func (k *Kernel) StartProcess(filename string, priority int) (*PCB, error) {
	executable, err := k.loader.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("no se pudo abrir %s: %w", filename, err)
	}

	pcb, err := k.processes.Allocate(filepath.Base(filename), nil, k.stats.TotalTicks())
	if err != nil {
		executable.Close()
		return nil, err
	}

	space, err := NewAddressSpace(pcb.PID, executable, filename, k.frames, k.machine, k.config.UserStackSize, k.config.ReadOnlyCode)
	if err != nil {
		executable.Close()
		k.processes.Discard(pcb, nil)
		return nil, fmt.Errorf("no se pudo cargar %s: %w", filename, err)
	}

	pcb.Space = space
	pcb.Priority = priority
	space.InitUserCPURegisters()
	pcb.UserRegisters = k.machine.Registers()
	pcb.body = k.userThread(pcb)

	k.scheduler.ReadyToRun(pcb)
	return pcb, nil
}

// StartBatch carga todos los programas de un archivo batch: una línea por programa con el formato
// "ruta [prioridad]". Sin prioridad se usa la de por defecto.
func (k *Kernel) StartBatch(batch io.Reader) error {
	scanner := bufio.NewScanner(batch)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		priority := models.DefaultPriority
		if len(fields) > 1 {
			value, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("prioridad inválida en la línea %d: %q", line, fields[1])
			}
			priority = value
		}

		if _, err := k.StartProcess(fields[0], priority); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Run arranca la máquina y espera a que se detenga. Devuelve el motivo si fue por un error fatal.
func (k *Kernel) Run() error {
	k.publishStatus()
	if err := k.scheduler.Start(); err != nil {
		return err
	}

	<-k.scheduler.Halted()
	k.stats.Log()
	k.publishStatus()
	return k.scheduler.HaltErr()
}

// Status devuelve la última foto publicada del kernel.
func (k *Kernel) Status() models.KernelStatus {
	k.statusMu.RLock()
	defer k.statusMu.RUnlock()
	return k.status
}

func (k *Kernel) Stats() models.Counters {
	return k.stats.Snapshot()
}

// userThread es el cuerpo de la goroutine de un proceso de usuario.
func (k *Kernel) userThread(pcb *PCB) func() {
	return func() {
		err := k.machine.Run()
		switch {
		case errors.Is(err, models.ErrThreadFinished):
			k.scheduler.Finish()
		case errors.Is(err, models.ErrMachineHalted):
			k.scheduler.halt(nil)
		default:
			k.scheduler.halt(fmt.Errorf("PID %d: %w", pcb.PID, err))
		}
	}
}

// publishStatus arma la foto desde el hilo que tiene la CPU. El servidor HTTP solo lee la foto.
func (k *Kernel) publishStatus() {
	status := models.KernelStatus{
		Policy:     k.frames.Policy().String(),
		PageSize:   k.config.PageSize,
		Frames:     k.frames.Snapshot(),
		Stats:      k.stats.Snapshot(),
		ReadyQueue: k.scheduler.ReadyPIDs(),
		SleepQueue: k.scheduler.SleepingPIDs(),
	}
	if current := k.scheduler.Current(); current != nil {
		status.CurrentPID = current.PID
	}
	select {
	case <-k.scheduler.Halted():
		status.Halted = true
	default:
	}

	for _, pcb := range k.processes.All() {
		process := models.ProcessStatus{
			PID:        pcb.PID,
			PPID:       pcb.PPID,
			Name:       pcb.Name,
			State:      pcb.State,
			Priority:   pcb.Priority,
			InstrCount: pcb.InstrCount,
			Children:   append([]models.ChildRecord(nil), pcb.Children...),
		}
		if pcb.Space != nil {
			process.NumPages = pcb.Space.NumPages()
			status.PageTables = append(status.PageTables, models.PageTableStatus{
				PID:       pcb.PID,
				PageTable: pcb.Space.PageTable(),
			})
		}
		status.Processes = append(status.Processes, process)
	}

	k.statusMu.Lock()
	defer k.statusMu.Unlock()
	k.status = status
}
