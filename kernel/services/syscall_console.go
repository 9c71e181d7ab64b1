package services

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

func (k *Kernel) syscallPrint(pcb *PCB, code models.SyscallCode) {
	value := k.argument(machineModels.Arg1Reg)

	switch code {
	case models.SyscallPrintInt:
		k.console.PutString(strconv.Itoa(int(value)))
	case models.SyscallPrintChar:
		k.console.PutChar(byte(value))
	case models.SyscallPrintIntHex:
		k.console.PutString("0x" + strconv.FormatUint(uint64(uint32(value)), 16))
	case models.SyscallPrintString:
		text, err := k.readUserString(pcb, int(value))
		k.console.PutString(text)
		if err != nil {
			slog.Warn(fmt.Sprintf("## (%d) - PrintString incompleto: %v", pcb.PID, err))
		}
	}
	k.incrementPC()
}

func (k *Kernel) syscallQuery(pcb *PCB, code models.SyscallCode) {
	switch code {
	case models.SyscallGetReg:
		reg := int(k.argument(machineModels.Arg1Reg))
		if reg < 0 || reg >= machineModels.NumTotalRegs {
			k.setResult(-1)
		} else {
			k.setResult(k.machine.ReadRegister(reg))
		}
	case models.SyscallGetPA:
		physical, ok := pcb.Space.Translate(int(k.argument(machineModels.Arg1Reg)))
		if !ok {
			k.setResult(-1)
		} else {
			k.setResult(int32(physical))
		}
	case models.SyscallGetPID:
		k.setResult(int32(pcb.PID))
	case models.SyscallGetPPID:
		k.setResult(int32(pcb.PPID))
	case models.SyscallTime:
		k.setResult(int32(k.stats.TotalTicks()))
	case models.SyscallNumInstr:
		k.setResult(int32(pcb.InstrCount))
	}
	k.incrementPC()
}
