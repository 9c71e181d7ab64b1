package models

import "errors"

var (
	ErrPhysicalMemoryExhausted = errors.New("memoria física agotada y sin política de reemplazo configurada")
	ErrPolicyNotImplemented    = errors.New("política de reemplazo no implementada")
	ErrNoEvictableFrame        = errors.New("no hay marcos desalojables")
	ErrBadNoffMagic            = errors.New("el ejecutable no tiene formato NOFF")
	ErrBadNoffSegment          = errors.New("segmento NOFF inválido")
	ErrAddressSpaceTooLarge    = errors.New("el espacio de direcciones no entra en el rango de direcciones virtuales")
	ErrSharedRegionTooLarge    = errors.New("la región compartida no entra en la memoria física")
	ErrProcessTableFull        = errors.New("tabla de procesos llena")
	ErrTooManyChildren         = errors.New("el proceso alcanzó el máximo de hijos")
	ErrUnexpectedException     = errors.New("excepción no esperada")
	ErrAddressOutOfRange       = errors.New("dirección virtual fuera del espacio de direcciones")

	// ErrThreadFinished lo devuelve el manejador de excepciones cuando el hilo actual terminó
	// (syscall Exit) para que su ciclo de ejecución finalice.
	ErrThreadFinished = errors.New("hilo finalizado")
	ErrMachineHalted  = errors.New("máquina detenida")
	ErrNoProcesses    = errors.New("no hay procesos para ejecutar")
)
