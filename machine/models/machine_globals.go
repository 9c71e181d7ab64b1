package models

import "fmt"

// Registros de la máquina simulada (convención MIPS).
const (
	NumGPRegs    = 32 // registros de propósito general
	StackReg     = 29 // puntero de pila
	RetAddrReg   = 31 // dirección de retorno
	HiReg        = 32
	LoReg        = 33
	PCReg        = 34 // program counter
	NextPCReg    = 35 // siguiente PC
	PrevPCReg    = 36 // PC anterior
	LoadReg      = 37
	LoadValueReg = 38
	BadVAddrReg  = 39 // dirección virtual que causó la última excepción
	NumTotalRegs = 40
)

// ABI de syscalls: código en r2, argumentos en r4..r7, resultado en r2.
const (
	SyscallCodeReg = 2
	ResultReg      = 2
	Arg1Reg        = 4
	Arg2Reg        = 5
	Arg3Reg        = 6
	Arg4Reg        = 7
)

// InstructionWidth es el tamaño en bytes de cada instrucción.
const InstructionWidth = 4

// InvalidFrame marca una entrada de tabla de páginas sin marco asignado.
const InvalidFrame = -1

type ExceptionType int

const (
	NoException           ExceptionType = iota // todo bien
	SyscallException                           // el programa pidió una syscall
	PageFaultException                         // página no residente
	ReadOnlyException                          // escritura a una página de solo lectura
	BusErrorException                          // la traducción dio una dirección física inválida
	AddressErrorException                      // dirección desalineada o fuera del espacio
	OverflowException                          // overflow en suma/resta
	IllegalInstrException                      // instrucción no implementada
)

func (e ExceptionType) String() string {
	switch e {
	case NoException:
		return "NoException"
	case SyscallException:
		return "SyscallException"
	case PageFaultException:
		return "PageFaultException"
	case ReadOnlyException:
		return "ReadOnlyException"
	case BusErrorException:
		return "BusErrorException"
	case AddressErrorException:
		return "AddressErrorException"
	case OverflowException:
		return "OverflowException"
	case IllegalInstrException:
		return "IllegalInstrException"
	default:
		return fmt.Sprintf("ExceptionType(%d)", int(e))
	}
}

// TranslationEntry es una entrada de la tabla de páginas lineal de un proceso.
type TranslationEntry struct {
	VirtualPage  int  `json:"virtual_page"`
	PhysicalPage int  `json:"physical_page"` // InvalidFrame si la página no está residente
	Valid        bool `json:"valid"`         // residente en un marco
	ReadOnly     bool `json:"read_only"`
	Use          bool `json:"use"`    // referenciada desde la última carga
	Dirty        bool `json:"dirty"`  // escrita desde la última carga
	Shared       bool `json:"shared"` // región compartida entre procesos, nunca se desaloja
	Backup       bool `json:"backup"` // tiene copia en el backup privado del espacio
}
