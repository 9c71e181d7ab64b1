package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// syscallFork crea un hijo con una copia del espacio del padre. El hijo arranca después de la
// syscall con 0 en el registro de resultado; el padre recibe el PID del hijo o -1.
func (k *Kernel) syscallFork(pcb *PCB) {
	k.incrementPC()

	child, err := k.processes.Allocate(pcb.Name, pcb, k.stats.TotalTicks())
	if err != nil {
		slog.Warn(fmt.Sprintf("## (%d) - No se pudo crear el hijo: %v", pcb.PID, err))
		k.setResult(-1)
		return
	}

	space, err := ForkAddressSpace(pcb.Space, child.PID, k.loader)
	if err != nil {
		slog.Warn(fmt.Sprintf("## (%d) - No se pudo duplicar el espacio de direcciones: %v", pcb.PID, err))
		k.processes.Discard(child, pcb)
		k.setResult(-1)
		return
	}
	child.Space = space

	k.setResult(0)
	child.UserRegisters = k.machine.Registers()
	k.setResult(int32(child.PID))
	child.body = k.userThread(child)

	restore := k.interrupt.Disable()
	k.scheduler.ReadyToRun(child)
	restore()

	slog.Info(fmt.Sprintf("## (%d) - Solicitó syscall: FORK", pcb.PID), "hijo", child.PID)
}

// syscallExec reemplaza el programa del proceso. El espacio viejo se libera recién cuando el nuevo
// quedó cargado; si falla, el proceso sigue con su programa y recibe -1.
func (k *Kernel) syscallExec(pcb *PCB) error {
	vaddr := int(k.argument(machineModels.Arg1Reg))

	path, err := k.readUserString(pcb, vaddr)
	if err != nil {
		slog.Warn(fmt.Sprintf("## (%d) - EXEC con ruta inválida: %v", pcb.PID, err))
		k.setResult(-1)
		k.incrementPC()
		return nil
	}

	executable, err := k.loader.Open(path)
	if err != nil {
		slog.Warn(fmt.Sprintf("## (%d) - No se pudo abrir %s", pcb.PID, path), "error", err)
		k.setResult(-1)
		k.incrementPC()
		return nil
	}

	space, err := NewAddressSpace(pcb.PID, executable, path, k.frames, k.machine, k.config.UserStackSize, k.config.ReadOnlyCode)
	if err != nil {
		executable.Close()
		if errors.Is(err, models.ErrBadNoffMagic) || errors.Is(err, models.ErrBadNoffSegment) {
			return fmt.Errorf("exec de %s: %w", path, err)
		}
		slog.Warn(fmt.Sprintf("## (%d) - No se pudo cargar %s: %v", pcb.PID, path, err))
		k.setResult(-1)
		k.incrementPC()
		return nil
	}

	old := pcb.Space
	pcb.Space = space
	pcb.Name = path
	space.InitUserCPURegisters()
	space.RestoreState()
	old.Release()

	slog.Info(fmt.Sprintf("## (%d) - Solicitó syscall: EXEC", pcb.PID), "programa", path)
	return nil
}

// syscallExit registra las métricas, avisa al padre y libera el proceso. Si era el último proceso
// se detiene la máquina.
func (k *Kernel) syscallExit(pcb *PCB) error {
	exitCode := int(k.argument(machineModels.Arg1Reg))
	now := k.stats.TotalTicks()
	k.stats.RecordCompletion(pcb.WaitingTime, now-pcb.CreatedAt)

	restore := k.interrupt.Disable()
	if parent, ok := k.processes.Lookup(pcb.PPID); ok {
		wasWaiting, found := parent.finishChild(pcb.PID, exitCode)
		if !found {
			slog.Warn(fmt.Sprintf("## (%d) - El padre %d no lo tiene como hijo", pcb.PID, parent.PID))
		}
		if wasWaiting {
			k.scheduler.ReadyToRun(parent)
		}
	}
	k.processes.Remove(pcb.PID)
	pcb.Space.Release()
	pcb.Space = nil
	restore()

	slog.Info(fmt.Sprintf("## (%d) - Finaliza el proceso", pcb.PID), "codigo", exitCode)

	if k.processes.Size() == 0 {
		return models.ErrMachineHalted
	}
	return models.ErrThreadFinished
}

// syscallJoin espera a que termine un hijo y devuelve su código de salida. Un hijo que ya terminó
// devuelve su código cada vez que se lo pide. Un PID que no es hijo devuelve -1.
func (k *Kernel) syscallJoin(pcb *PCB) {
	childPID := int(k.argument(machineModels.Arg1Reg))
	k.incrementPC()

	index := pcb.ChildIndex(childPID)
	if index < 0 {
		slog.Warn(fmt.Sprintf("## (%d) - JOIN a %d que no es hijo", pcb.PID, childPID))
		k.setResult(-1)
		return
	}

	switch pcb.Children[index].Status {
	case models.ChildFinished:
		k.setResult(int32(pcb.Children[index].ExitCode))
	case models.ChildLive:
		slog.Info(fmt.Sprintf("## (%d) Solicitó syscall bloqueante: JOIN", pcb.PID), "hijo", childPID)
		restore := k.interrupt.Disable()
		pcb.Children[index].Status = models.ChildParentWaiting
		k.scheduler.Sleep()
		restore()
		k.setResult(int32(pcb.Children[index].ExitCode))
	default:
		k.setResult(-1)
	}
}

// syscallSleep duerme al proceso la cantidad de ticks pedida. Con 0 solo cede la CPU.
func (k *Kernel) syscallSleep(pcb *PCB) {
	ticks := int64(k.argument(machineModels.Arg1Reg))
	k.incrementPC()

	if ticks <= 0 {
		k.scheduler.Yield()
		return
	}
	slog.Info(fmt.Sprintf("## (%d) Solicitó syscall bloqueante: SLEEP", pcb.PID), "ticks", ticks)
	k.scheduler.SleepUntil(k.stats.TotalTicks() + ticks)
}

// syscallShmAllocate agrega una región compartida al final del espacio y devuelve su dirección.
func (k *Kernel) syscallShmAllocate(pcb *PCB) {
	size := int(k.argument(machineModels.Arg1Reg))
	k.incrementPC()

	start, err := pcb.Space.GrowWithSharedRegion(size, k.codeFrame(pcb))
	pcb.Space.RestoreState()
	if err != nil {
		slog.Warn(fmt.Sprintf("## (%d) - No se pudo reservar memoria compartida: %v", pcb.PID, err))
		k.setResult(-1)
		return
	}
	k.setResult(int32(start))
	slog.Info(fmt.Sprintf("## (%d) - Solicitó syscall: SHM_ALLOCATE", pcb.PID), "inicio", start, "size", size)
}
