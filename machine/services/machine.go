package services

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// ExceptionHandler recibe el control cada vez que una instrucción genera una excepción.
// Si retorna un error el ciclo de ejecución se corta y Run lo devuelve.
type ExceptionHandler interface {
	HandleException(which models.ExceptionType) error
}

// Machine simula la CPU y la memoria física. Solo hay una: el kernel la comparte entre los hilos y
// guarda/restaura los registros en cada cambio de contexto.
type Machine struct {
	registers    [models.NumTotalRegs]int32
	MainMemory   []byte
	pageTable    []models.TranslationEntry
	pageSize     int
	numPhysPages int
	handler      ExceptionHandler

	// OnTick se invoca luego de cada instrucción ejecutada (reloj del sistema).
	OnTick func()
}

func NewMachine(pageSize int, numPhysPages int) *Machine {
	m := &Machine{
		MainMemory:   make([]byte, pageSize*numPhysPages),
		pageSize:     pageSize,
		numPhysPages: numPhysPages,
	}
	slog.Debug("Máquina inicializada", "page_size", pageSize, "marcos", numPhysPages, "memoria", len(m.MainMemory))
	return m
}

func (m *Machine) SetExceptionHandler(handler ExceptionHandler) {
	m.handler = handler
}

func (m *Machine) ReadRegister(num int) int32 {
	return m.registers[num]
}

func (m *Machine) WriteRegister(num int, value int32) {
	m.registers[num] = value
}

// Registers devuelve una copia de todos los registros, se usa para guardar el estado de usuario.
func (m *Machine) Registers() [models.NumTotalRegs]int32 {
	return m.registers
}

func (m *Machine) SetRegisters(registers [models.NumTotalRegs]int32) {
	m.registers = registers
}

// InstallPageTable hace que la traducción use la tabla dada. La tabla se comparte, no se copia:
// los bits use/dirty que marca la máquina quedan en la tabla del espacio de direcciones.
func (m *Machine) InstallPageTable(table []models.TranslationEntry) {
	m.pageTable = table
}

func (m *Machine) PageTable() []models.TranslationEntry {
	return m.pageTable
}

func (m *Machine) PageSize() int {
	return m.pageSize
}

func (m *Machine) NumPhysPages() int {
	return m.numPhysPages
}

// Frame devuelve el contenido del marco físico n como slice de MainMemory.
func (m *Machine) Frame(n int) []byte {
	start := n * m.pageSize
	end := start + m.pageSize
	return m.MainMemory[start:end:end]
}

// Translate traduce una dirección virtual a física usando la tabla instalada. Marca los bits de
// uso y modificado de la entrada cuando la traducción es exitosa.
func (m *Machine) Translate(vaddr int, size int, writing bool) (int, models.ExceptionType) {
	if vaddr < 0 {
		return -1, models.AddressErrorException
	}
	if (size == 4 && vaddr&0x3 != 0) || (size == 2 && vaddr&0x1 != 0) {
		slog.Debug("Acceso desalineado", "vaddr", vaddr, "size", size)
		return -1, models.AddressErrorException
	}

	vpn := vaddr / m.pageSize
	offset := vaddr % m.pageSize
	if vpn >= len(m.pageTable) {
		slog.Debug("Página fuera de la tabla", "vpn", vpn, "paginas", len(m.pageTable))
		return -1, models.AddressErrorException
	}

	entry := &m.pageTable[vpn]
	if !entry.Valid {
		return -1, models.PageFaultException
	}
	if entry.ReadOnly && writing {
		return -1, models.ReadOnlyException
	}

	frame := entry.PhysicalPage
	if frame < 0 || frame >= m.numPhysPages {
		slog.Error(fmt.Sprintf("Traducción inválida: página %d apunta al marco %d", vpn, frame))
		return -1, models.BusErrorException
	}

	entry.Use = true
	if writing {
		entry.Dirty = true
	}
	return frame*m.pageSize + offset, models.NoException
}

// ReadMem lee size bytes (1, 2 o 4) de la dirección virtual. Ante una excepción deja la dirección
// en BadVAddrReg y la devuelve sin invocar al manejador: decide quien llama.
func (m *Machine) ReadMem(vaddr int, size int) (int32, models.ExceptionType) {
	if size != 1 && size != 2 && size != 4 {
		return 0, models.AddressErrorException
	}

	physical, exception := m.Translate(vaddr, size, false)
	if exception != models.NoException {
		m.registers[models.BadVAddrReg] = int32(vaddr)
		return 0, exception
	}

	switch size {
	case 1:
		return int32(m.MainMemory[physical]), models.NoException
	case 2:
		return int32(binary.LittleEndian.Uint16(m.MainMemory[physical:])), models.NoException
	default:
		return int32(binary.LittleEndian.Uint32(m.MainMemory[physical:])), models.NoException
	}
}

// WriteMem escribe size bytes (1, 2 o 4) en la dirección virtual.
func (m *Machine) WriteMem(vaddr int, size int, value int32) models.ExceptionType {
	if size != 1 && size != 2 && size != 4 {
		return models.AddressErrorException
	}

	physical, exception := m.Translate(vaddr, size, true)
	if exception != models.NoException {
		m.registers[models.BadVAddrReg] = int32(vaddr)
		return exception
	}

	switch size {
	case 1:
		m.MainMemory[physical] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.MainMemory[physical:], uint16(value))
	default:
		binary.LittleEndian.PutUint32(m.MainMemory[physical:], uint32(value))
	}
	return models.NoException
}

// RaiseException transfiere el control al kernel.
func (m *Machine) RaiseException(which models.ExceptionType, badVAddr int) error {
	m.registers[models.BadVAddrReg] = int32(badVAddr)
	if m.handler == nil {
		return fmt.Errorf("excepción %s sin manejador registrado", which)
	}
	return m.handler.HandleException(which)
}

// Run ejecuta instrucciones hasta que el manejador de excepciones devuelva un error
// (fin del hilo, halt o error fatal).
func (m *Machine) Run() error {
	for {
		if err := m.OneInstruction(); err != nil {
			return err
		}
		if m.OnTick != nil {
			m.OnTick()
		}
	}
}
