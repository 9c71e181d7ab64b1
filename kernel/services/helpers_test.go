package services

import (
	"bytes"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
)

var sc = machine.EncodeImm(machineModels.OpSyscall, 0, 0)

func li(rd int, imm int) uint32 {
	return machine.EncodeImm(machineModels.OpLoadImm, rd, imm)
}

func mv(rd int, rs int) uint32 {
	return machine.EncodeReg(machineModels.OpMove, rd, rs, 0)
}

func code(syscall models.SyscallCode) uint32 {
	return li(machineModels.SyscallCodeReg, int(syscall))
}

func program(words ...uint32) []byte {
	return BuildExecutable(machine.Assemble(words...), nil, 0)
}

func testConfig(policy string, numPhysPages int) *models.Config {
	return &models.Config{
		PageSize:          128,
		NumPhysPages:      numPhysPages,
		ReplacementPolicy: policy,
		RandomSeed:        1,
		UserStackSize:     256,
		MaxProcesses:      16,
		MaxChildren:       8,
		LogLevel:          "ERROR",
	}
}

func newTestKernel(t *testing.T, config *models.Config, files map[string][]byte) (*Kernel, *bytes.Buffer) {
	t.Helper()

	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: data}
	}

	out := &bytes.Buffer{}
	k, err := NewKernel(config, FSLoader{FS: fsys}, out)
	if err != nil {
		t.Fatalf("Expected kernel to be created, got %v", err)
	}
	return k, out
}

func runKernel(t *testing.T, k *Kernel) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- k.Run() }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("Kernel did not halt")
		return nil
	}
}

// testMemory arma una máquina y un asignador para probar espacios de direcciones sin kernel.
func testMemory(t *testing.T, policy models.ReplacementPolicy, pageSize int, frames int) (*machine.Machine, *FrameAllocator, *models.Stats) {
	t.Helper()

	m := machine.NewMachine(pageSize, frames)
	stats := models.NewStats()
	allocator, err := NewFrameAllocator(policy, m, stats, 1)
	if err != nil {
		t.Fatalf("Expected allocator, got %v", err)
	}
	return m, allocator, stats
}

func testLoader(files map[string][]byte) FSLoader {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: data}
	}
	return FSLoader{FS: fsys}
}
