package models

// ThreadState es el estado de planificación de un hilo.
type ThreadState string

const (
	StateJustCreated ThreadState = "JUST_CREATED"
	StateReady       ThreadState = "READY"
	StateRunning     ThreadState = "RUNNING"
	StateBlocked     ThreadState = "BLOCKED"
	StateFinished    ThreadState = "FINISHED"
)

// ChildStatus es el estado de un hijo visto desde el padre. FINISHED es terminal.
type ChildStatus string

const (
	ChildLive          ChildStatus = "LIVE"
	ChildFinished      ChildStatus = "FINISHED"
	ChildParentWaiting ChildStatus = "PARENT_WAITING"
)

type ChildRecord struct {
	PID      int         `json:"pid"`
	Status   ChildStatus `json:"status"`
	ExitCode int         `json:"exit_code"`
}

// SyscallCode es el número de syscall que el programa deja en SyscallCodeReg.
type SyscallCode int32

const (
	SyscallHalt        SyscallCode = 0
	SyscallExit        SyscallCode = 1
	SyscallExec        SyscallCode = 2
	SyscallJoin        SyscallCode = 3
	SyscallFork        SyscallCode = 9
	SyscallYield       SyscallCode = 10
	SyscallPrintInt    SyscallCode = 11
	SyscallPrintChar   SyscallCode = 12
	SyscallPrintString SyscallCode = 13
	SyscallGetReg      SyscallCode = 14
	SyscallGetPA       SyscallCode = 15
	SyscallGetPID      SyscallCode = 16
	SyscallGetPPID     SyscallCode = 17
	SyscallSleep       SyscallCode = 18
	SyscallTime        SyscallCode = 19
	SyscallPrintIntHex SyscallCode = 20
	SyscallNumInstr    SyscallCode = 21
	SyscallShmAllocate SyscallCode = 22
)

// NoParent es el PPID de los procesos iniciales y de los huérfanos.
const NoParent = 0
