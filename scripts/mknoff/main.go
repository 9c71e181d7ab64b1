package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/services"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
)

// Genera los programas de ejemplo en formato NOFF.
// > go run ./scripts/mknoff ./programs

var sc = machine.EncodeImm(machineModels.OpSyscall, 0, 0)

func li(rd int, imm int) uint32 {
	return machine.EncodeImm(machineModels.OpLoadImm, rd, imm)
}

func mv(rd int, rs int) uint32 {
	return machine.EncodeReg(machineModels.OpMove, rd, rs, 0)
}

func call(syscall models.SyscallCode) []uint32 {
	return []uint32{li(machineModels.SyscallCodeReg, int(syscall)), sc}
}

func join(parts ...[]uint32) []uint32 {
	var words []uint32
	for _, part := range parts {
		words = append(words, part...)
	}
	return words
}

// hola imprime un saludo guardado en los datos inicializados.
func hola() []byte {
	message := []byte("Hola desde Nachos\n\x00")
	const codeWords = 6

	words := join(
		[]uint32{li(machineModels.Arg1Reg, codeWords*machineModels.InstructionWidth)},
		call(models.SyscallPrintString),
		[]uint32{li(machineModels.Arg1Reg, 0)},
		call(models.SyscallExit),
	)
	return services.BuildExecutable(machine.Assemble(words...), message, 0)
}

// forkjoin crea un hijo que termina con 7 y el padre imprime lo que devuelve Join.
func forkjoin() []byte {
	words := join(
		call(models.SyscallFork),
		[]uint32{machine.EncodeImm(machineModels.OpBnez, machineModels.ResultReg, 4)},
		[]uint32{li(machineModels.Arg1Reg, 7)}, call(models.SyscallExit),
		[]uint32{mv(machineModels.Arg1Reg, machineModels.ResultReg)}, call(models.SyscallJoin),
		[]uint32{mv(machineModels.Arg1Reg, machineModels.ResultReg)}, call(models.SyscallPrintInt),
		[]uint32{li(machineModels.Arg1Reg, 0)}, call(models.SyscallExit),
	)
	return services.BuildExecutable(machine.Assemble(words...), nil, 0)
}

// dormilon duerme 50 ticks y después imprime su PID.
func dormilon() []byte {
	words := join(
		[]uint32{li(machineModels.Arg1Reg, 50)}, call(models.SyscallSleep),
		call(models.SyscallGetPID),
		[]uint32{mv(machineModels.Arg1Reg, machineModels.ResultReg)}, call(models.SyscallPrintInt),
		[]uint32{li(machineModels.Arg1Reg, '\n')}, call(models.SyscallPrintChar),
		[]uint32{li(machineModels.Arg1Reg, 0)}, call(models.SyscallExit),
	)
	return services.BuildExecutable(machine.Assemble(words...), nil, 0)
}

func main() {
	outDir := "programs"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Printf("Error al crear el directorio %s: %v\n", outDir, err)
		os.Exit(1)
	}

	programs := map[string][]byte{
		"hola":      hola(),
		"forkjoin":  forkjoin(),
		"dormilon":  dormilon(),
		"batch.txt": []byte("dormilon 100\nhola\nforkjoin 50\n"),
	}

	for name, content := range programs {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, content, 0644); err != nil {
			fmt.Printf("Error al escribir %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generado %s (%d bytes)\n", path, len(content))
	}
}
