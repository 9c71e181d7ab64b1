package services

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
)

// stackMargin es lo que se deja libre al final del espacio al inicializar el puntero de pila.
const stackMargin = 16

// maxSpaceSize es el tope de un espacio de direcciones: los registros son de 32 bits con signo.
const maxSpaceSize = math.MaxInt32

// AddressSpace es la memoria virtual de un proceso: tabla de páginas lineal, ejecutable de origen y
// un backup privado del tamaño de todo el espacio para las páginas desalojadas o copiadas.
type AddressSpace struct {
	pid        int
	filename   string
	executable Executable
	header     NoffHeader
	pageTable  []machineModels.TranslationEntry
	backup     []byte
	numPages   int
	pageSize   int
	frames     *FrameAllocator
	machine    *machine.Machine
}

// NewAddressSpace arma el espacio de un programa. No se asignan marcos: todas las páginas se cargan
// por demanda en el primer fallo. Si falla, el ejecutable sigue siendo de quien llama.
func NewAddressSpace(pid int, executable Executable, filename string, frames *FrameAllocator, m *machine.Machine, stackSize int, readOnlyCode bool) (*AddressSpace, error) {
	header, err := ReadNoffHeader(executable)
	if err != nil {
		return nil, err
	}

	pageSize := m.PageSize()
	size := header.loadedSize() + int64(stackSize)
	if size > maxSpaceSize {
		return nil, fmt.Errorf("%w: %d bytes", models.ErrAddressSpaceTooLarge, size)
	}

	numPages := divRoundUp(int(size), pageSize)
	if err := frames.CheckCapacity(numPages); err != nil {
		return nil, err
	}

	space := &AddressSpace{
		pid:        pid,
		filename:   filename,
		executable: executable,
		header:     header,
		pageTable:  make([]machineModels.TranslationEntry, numPages),
		backup:     make([]byte, numPages*pageSize),
		numPages:   numPages,
		pageSize:   pageSize,
		frames:     frames,
		machine:    m,
	}

	for vpn := range space.pageTable {
		space.pageTable[vpn] = machineModels.TranslationEntry{
			VirtualPage:  vpn,
			PhysicalPage: machineModels.InvalidFrame,
			ReadOnly:     readOnlyCode && space.insideCode(vpn),
		}
	}

	frames.Attach(pid, space)
	slog.Debug(fmt.Sprintf("## PID: %d - Espacio de direcciones creado", pid), "archivo", filename, "paginas", numPages,
		"codigo", header.Code.Size, "datos", header.InitData.Size, "bss", header.UninitData.Size)
	return space, nil
}

// ForkAddressSpace duplica el espacio del padre para childPID. Las páginas compartidas o no
// residentes se mapean igual que en el padre; las privadas residentes se copian a un marco nuevo.
func ForkAddressSpace(parent *AddressSpace, childPID int, loader FileSystem) (*AddressSpace, error) {
	executable, err := loader.Open(parent.filename)
	if err != nil {
		return nil, fmt.Errorf("no se pudo reabrir %s: %w", parent.filename, err)
	}

	if err := parent.frames.CheckCapacity(parent.privatePages()); err != nil {
		executable.Close()
		return nil, err
	}

	child := &AddressSpace{
		pid:        childPID,
		filename:   parent.filename,
		executable: executable,
		header:     parent.header,
		pageTable:  make([]machineModels.TranslationEntry, parent.numPages),
		backup:     make([]byte, len(parent.backup)),
		numPages:   parent.numPages,
		pageSize:   parent.pageSize,
		frames:     parent.frames,
		machine:    parent.machine,
	}
	for vpn := range child.pageTable {
		child.pageTable[vpn] = machineModels.TranslationEntry{VirtualPage: vpn, PhysicalPage: machineModels.InvalidFrame}
	}

	// El hijo se registra antes de pedir marcos: un desalojo en medio de la copia puede caer en una
	// página suya ya copiada.
	parent.frames.Attach(childPID, child)

	for vpn := range parent.pageTable {
		// Se lee en cada vuelta: pedir un marco puede desalojar páginas del padre que faltan copiar.
		entry := parent.pageTable[vpn]
		child.copyBackupPage(parent, vpn)

		switch {
		case entry.Shared && entry.Valid:
			parent.frames.RetainShared(entry.PhysicalPage)
			child.pageTable[vpn] = entry
		case !entry.Valid:
			child.pageTable[vpn] = entry
		default:
			frame, err := parent.frames.Allocate(childPID, vpn, entry.PhysicalPage)
			if err != nil {
				child.Release()
				return nil, err
			}
			copy(child.machine.Frame(frame), child.machine.Frame(entry.PhysicalPage))
			entry.PhysicalPage = frame
			child.pageTable[vpn] = entry
		}
	}

	slog.Debug(fmt.Sprintf("## PID: %d - Espacio de direcciones duplicado del PID %d", childPID, parent.pid), "paginas", child.numPages)
	return child, nil
}

// GrowWithSharedRegion agrega al final del espacio size bytes (redondeado a páginas) de memoria
// compartida ya residente y en cero. Devuelve la dirección virtual donde empieza la región.
// avoidFrame no puede desalojarse mientras se piden los marcos.
// La tabla de páginas se realoca: quien llama debe volver a instalarla con RestoreState.
func (s *AddressSpace) GrowWithSharedRegion(size int, avoidFrame int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("tamaño de región compartida inválido: %d", size)
	}

	oldPages := s.numPages
	newPages := divRoundUp(size, s.pageSize)
	if err := s.frames.CheckSharedCapacity(newPages); err != nil {
		return 0, err
	}
	start := oldPages * s.pageSize

	table := make([]machineModels.TranslationEntry, oldPages+newPages)
	copy(table, s.pageTable)
	backup := make([]byte, len(table)*s.pageSize)
	copy(backup, s.backup)

	oldTable, oldBackup := s.pageTable, s.backup
	s.pageTable, s.backup = table, backup
	for vpn := oldPages; vpn < len(table); vpn++ {
		table[vpn] = machineModels.TranslationEntry{VirtualPage: vpn, PhysicalPage: machineModels.InvalidFrame}
	}

	for vpn := oldPages; vpn < len(table); vpn++ {
		frame, err := s.frames.AllocateShared(s.pid, vpn, avoidFrame)
		if err != nil {
			for allocated := oldPages; allocated < vpn; allocated++ {
				s.frames.Release(s.pid, table[allocated].PhysicalPage)
			}
			// Las páginas viejas pudieron desalojarse mientras tanto: se conservan sus entradas.
			copy(oldTable, table[:oldPages])
			copy(oldBackup, backup[:len(oldBackup)])
			s.pageTable, s.backup = oldTable, oldBackup
			return 0, err
		}

		clear(s.machine.Frame(frame))
		table[vpn] = machineModels.TranslationEntry{VirtualPage: vpn, PhysicalPage: frame, Valid: true, Shared: true}
	}

	s.numPages = len(table)
	slog.Debug(fmt.Sprintf("## PID: %d - Región compartida de %d páginas en %d", s.pid, newPages, start))
	return start, nil
}

// HandlePageFault carga la página que contiene vaddr: desde el backup si fue desalojada modificada,
// o desde el ejecutable si nunca se tocó. avoidFrame no puede elegirse como víctima.
func (s *AddressSpace) HandlePageFault(vaddr int, avoidFrame int) error {
	vpn := vaddr / s.pageSize
	if vaddr < 0 || vpn >= s.numPages {
		return fmt.Errorf("%w: %d", models.ErrAddressOutOfRange, vaddr)
	}

	entry := &s.pageTable[vpn]
	if entry.Valid {
		return nil
	}

	frame, err := s.frames.Allocate(s.pid, vpn, avoidFrame)
	if err != nil {
		return err
	}

	memory := s.machine.Frame(frame)
	clear(memory)

	if entry.Backup {
		copy(memory, s.backup[vpn*s.pageSize:(vpn+1)*s.pageSize])
	} else {
		pageStart := vpn * s.pageSize
		for _, segment := range []Segment{s.header.Code, s.header.InitData} {
			if err := readSegmentPage(s.executable, segment, pageStart, memory); err != nil {
				s.frames.Release(s.pid, frame)
				return fmt.Errorf("no se pudo leer la página %d de %s: %w", vpn, s.filename, err)
			}
		}
	}

	entry.PhysicalPage = frame
	entry.Valid = true
	entry.Dirty = false
	entry.Use = false

	slog.Debug(fmt.Sprintf("## PID: %d - Página %d cargada en el marco %d", s.pid, vpn, frame), "backup", entry.Backup)
	return nil
}

// Release devuelve los marcos propios, suelta los compartidos y cierra el ejecutable.
func (s *AddressSpace) Release() {
	for vpn := range s.pageTable {
		entry := &s.pageTable[vpn]
		if entry.Valid {
			s.frames.Release(s.pid, entry.PhysicalPage)
			entry.Valid = false
			entry.PhysicalPage = machineModels.InvalidFrame
		}
	}
	s.frames.Detach(s.pid, s)

	if err := s.executable.Close(); err != nil {
		slog.Warn(fmt.Sprintf("## PID: %d - No se pudo cerrar %s: %v", s.pid, s.filename, err))
	}
	slog.Debug(fmt.Sprintf("## PID: %d - Espacio de direcciones liberado", s.pid))
}

// Translate devuelve la dirección física de vaddr sin provocar fallos de página.
func (s *AddressSpace) Translate(vaddr int) (int, bool) {
	vpn := vaddr / s.pageSize
	if vaddr < 0 || vpn >= s.numPages {
		return -1, false
	}

	entry := s.pageTable[vpn]
	if !entry.Valid || entry.PhysicalPage < 0 || entry.PhysicalPage >= s.machine.NumPhysPages() {
		return -1, false
	}
	return entry.PhysicalPage*s.pageSize + vaddr%s.pageSize, true
}

// InitUserCPURegisters deja los registros listos para arrancar el programa desde su punto de entrada.
func (s *AddressSpace) InitUserCPURegisters() {
	var registers [machineModels.NumTotalRegs]int32
	registers[machineModels.PCReg] = s.header.Code.VirtualAddr
	registers[machineModels.NextPCReg] = s.header.Code.VirtualAddr + machineModels.InstructionWidth
	registers[machineModels.StackReg] = int32(s.numPages*s.pageSize - stackMargin)
	s.machine.SetRegisters(registers)

	slog.Debug(fmt.Sprintf("## PID: %d - Registros inicializados", s.pid), "sp", registers[machineModels.StackReg])
}

// SaveState no copia nada: la máquina usa la misma tabla que el espacio.
func (s *AddressSpace) SaveState() {}

// RestoreState instala la tabla de páginas en la máquina.
func (s *AddressSpace) RestoreState() {
	s.machine.InstallPageTable(s.pageTable)
}

func (s *AddressSpace) PageEntry(vpn int) *machineModels.TranslationEntry {
	if vpn < 0 || vpn >= len(s.pageTable) {
		return nil
	}
	return &s.pageTable[vpn]
}

func (s *AddressSpace) SavePage(vpn int, content []byte) {
	copy(s.backup[vpn*s.pageSize:(vpn+1)*s.pageSize], content)
}

func (s *AddressSpace) NumPages() int {
	return s.numPages
}

func (s *AddressSpace) Header() NoffHeader {
	return s.header
}

// PageTable devuelve una copia de la tabla de páginas.
func (s *AddressSpace) PageTable() []machineModels.TranslationEntry {
	return append([]machineModels.TranslationEntry(nil), s.pageTable...)
}

// BackupPage devuelve una copia del contenido guardado de la página vpn.
func (s *AddressSpace) BackupPage(vpn int) []byte {
	return append([]byte(nil), s.backup[vpn*s.pageSize:(vpn+1)*s.pageSize]...)
}

func (s *AddressSpace) insideCode(vpn int) bool {
	start := vpn * s.pageSize
	end := start + s.pageSize
	code := s.header.Code
	return code.Size > 0 && start >= int(code.VirtualAddr) && end <= int(code.VirtualAddr)+int(code.Size)
}

func (s *AddressSpace) privatePages() int {
	pages := 0
	for _, entry := range s.pageTable {
		if !entry.Shared {
			pages++
		}
	}
	return pages
}

func (s *AddressSpace) copyBackupPage(from *AddressSpace, vpn int) {
	start := vpn * s.pageSize
	copy(s.backup[start:start+s.pageSize], from.backup[start:start+from.pageSize])
}

func divRoundUp(n int, size int) int {
	return (n + size - 1) / size
}
