package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// maxUserString acota las cadenas que se leen de memoria de usuario (rutas de exec, PrintString).
const maxUserString = 1000

// HandleException es el punto de entrada al kernel desde la máquina. Las syscalls que fallan
// devuelven -1 en el registro de resultado; un error retornado corta la ejecución del hilo.
func (k *Kernel) HandleException(which machineModels.ExceptionType) error {
	pcb := k.scheduler.Current()

	switch which {
	case machineModels.SyscallException:
		k.stats.AddSystemTicks(models.SystemTick)
		err := k.dispatchSyscall(pcb)
		k.publishStatus()
		return err
	case machineModels.PageFaultException:
		vaddr := int(k.machine.ReadRegister(machineModels.BadVAddrReg))
		if err := pcb.Space.HandlePageFault(vaddr, k.codeFrame(pcb)); err != nil {
			return fmt.Errorf("fallo de página en %d: %w", vaddr, err)
		}
		return nil
	default:
		vaddr := k.machine.ReadRegister(machineModels.BadVAddrReg)
		slog.Error(fmt.Sprintf("## (%d) - Excepción inesperada %s", pcb.PID, which), "vaddr", vaddr,
			"pc", k.machine.ReadRegister(machineModels.PCReg))
		return fmt.Errorf("%w: %s (vaddr %d)", models.ErrUnexpectedException, which, vaddr)
	}
}

func (k *Kernel) dispatchSyscall(pcb *PCB) error {
	code := models.SyscallCode(k.machine.ReadRegister(machineModels.SyscallCodeReg))

	switch code {
	case models.SyscallHalt:
		slog.Info(fmt.Sprintf("## (%d) - Solicitó syscall: HALT", pcb.PID))
		return models.ErrMachineHalted
	case models.SyscallExit:
		return k.syscallExit(pcb)
	case models.SyscallExec:
		return k.syscallExec(pcb)
	case models.SyscallJoin:
		k.syscallJoin(pcb)
	case models.SyscallFork:
		k.syscallFork(pcb)
	case models.SyscallYield:
		k.incrementPC()
		k.scheduler.Yield()
	case models.SyscallSleep:
		k.syscallSleep(pcb)
	case models.SyscallShmAllocate:
		k.syscallShmAllocate(pcb)
	case models.SyscallPrintInt, models.SyscallPrintChar, models.SyscallPrintString, models.SyscallPrintIntHex:
		k.syscallPrint(pcb, code)
	case models.SyscallGetReg, models.SyscallGetPA, models.SyscallGetPID, models.SyscallGetPPID,
		models.SyscallTime, models.SyscallNumInstr:
		k.syscallQuery(pcb, code)
	default:
		slog.Error(fmt.Sprintf("## (%d) - Syscall desconocida %d", pcb.PID, code))
		return fmt.Errorf("%w: syscall %d", models.ErrUnexpectedException, code)
	}
	return nil
}

// incrementPC avanza los tres contadores de programa una instrucción.
func (k *Kernel) incrementPC() {
	pc := k.machine.ReadRegister(machineModels.PCReg)
	next := k.machine.ReadRegister(machineModels.NextPCReg)
	k.machine.WriteRegister(machineModels.PrevPCReg, pc)
	k.machine.WriteRegister(machineModels.PCReg, next)
	k.machine.WriteRegister(machineModels.NextPCReg, next+machineModels.InstructionWidth)
}

func (k *Kernel) setResult(value int32) {
	k.machine.WriteRegister(machineModels.ResultReg, value)
}

func (k *Kernel) argument(reg int) int32 {
	return k.machine.ReadRegister(reg)
}

// codeFrame es el marco de la instrucción en curso, que no conviene desalojar al resolver un fallo.
func (k *Kernel) codeFrame(pcb *PCB) int {
	pc := int(k.machine.ReadRegister(machineModels.PCReg))
	entry := pcb.Space.PageEntry(pc / k.config.PageSize)
	if entry == nil || !entry.Valid {
		return machineModels.InvalidFrame
	}
	return entry.PhysicalPage
}

// readUserByte lee un byte de memoria de usuario pasando por la traducción; si la página no está
// residente la carga y reintenta.
func (k *Kernel) readUserByte(pcb *PCB, vaddr int) (byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		value, exception := k.machine.ReadMem(vaddr, 1)
		switch exception {
		case machineModels.NoException:
			return byte(value), nil
		case machineModels.PageFaultException:
			if err := pcb.Space.HandlePageFault(vaddr, k.codeFrame(pcb)); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("%w: %d (%s)", models.ErrAddressOutOfRange, vaddr, exception)
		}
	}
	return 0, fmt.Errorf("la dirección %d sigue sin estar residente", vaddr)
}

// readUserString lee una cadena terminada en cero. Si falla devuelve lo leído hasta el error.
func (k *Kernel) readUserString(pcb *PCB, vaddr int) (string, error) {
	var builder []byte
	for len(builder) < maxUserString {
		ch, err := k.readUserByte(pcb, vaddr+len(builder))
		if err != nil {
			return string(builder), err
		}
		if ch == 0 {
			return string(builder), nil
		}
		builder = append(builder, ch)
	}
	return string(builder), fmt.Errorf("cadena en %d sin terminar en %d bytes", vaddr, maxUserString)
}
