package services

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// PCB es el bloque de control de un proceso de usuario (un hilo con su espacio de direcciones).
type PCB struct {
	PID           int
	PPID          int
	Name          string
	Priority      int
	State         models.ThreadState
	Space         *AddressSpace
	UserRegisters [machineModels.NumTotalRegs]int32

	// Tiempos en ticks del reloj simulado.
	CreatedAt   int64
	WaitingTime int64
	InstrCount  int64
	readySince  int64
	burstStart  int64
	wakeAt      int64

	// Children tiene a todos los hijos creados. Los registros no se borran nunca: join puede
	// preguntar por un hijo que ya terminó.
	Children []models.ChildRecord

	wake    chan struct{}
	started bool
	body    func()
}

// ChildIndex devuelve la posición del hijo pid en Children, o -1.
func (p *PCB) ChildIndex(pid int) int {
	for i, child := range p.Children {
		if child.PID == pid {
			return i
		}
	}
	return -1
}

// finishChild marca al hijo como terminado con su código de salida. Indica si el padre lo estaba
// esperando en un join.
func (p *PCB) finishChild(pid int, exitCode int) (wasWaiting bool, found bool) {
	index := p.ChildIndex(pid)
	if index < 0 {
		return false, false
	}

	record := &p.Children[index]
	if record.Status == models.ChildFinished {
		slog.Warn(fmt.Sprintf("## PID: %d - El hijo %d ya había terminado", p.PID, pid))
		return false, true
	}
	wasWaiting = record.Status == models.ChildParentWaiting
	record.Status = models.ChildFinished
	record.ExitCode = exitCode
	return wasWaiting, true
}

// ProcessTable es la tabla global de procesos vivos. Los PID se asignan en forma creciente y no se
// reutilizan.
type ProcessTable struct {
	capacity    int
	maxChildren int
	nextPID     int
	processes   map[int]*PCB
}

func NewProcessTable(capacity int, maxChildren int) *ProcessTable {
	return &ProcessTable{
		capacity:    capacity,
		maxChildren: maxChildren,
		nextPID:     1,
		processes:   make(map[int]*PCB),
	}
}

// Allocate crea el PCB de un proceso nuevo. Si tiene padre, se agrega el registro LIVE a sus hijos.
func (t *ProcessTable) Allocate(name string, parent *PCB, createdAt int64) (*PCB, error) {
	if len(t.processes) >= t.capacity {
		return nil, fmt.Errorf("%w: %d procesos", models.ErrProcessTableFull, t.capacity)
	}
	if parent != nil && len(parent.Children) >= t.maxChildren {
		return nil, fmt.Errorf("%w: PID %d", models.ErrTooManyChildren, parent.PID)
	}

	pid := t.generatePID()
	pcb := &PCB{
		PID:       pid,
		PPID:      models.NoParent,
		Name:      name,
		Priority:  models.DefaultPriority,
		State:     models.StateJustCreated,
		CreatedAt: createdAt,
		wake:      make(chan struct{}, 1),
	}
	if parent != nil {
		pcb.PPID = parent.PID
		pcb.Priority = parent.Priority
		parent.Children = append(parent.Children, models.ChildRecord{PID: pid, Status: models.ChildLive})
	}

	t.processes[pid] = pcb
	slog.Info(fmt.Sprintf("## PID: %d Se crea el proceso - Estado: %s", pid, pcb.State), "nombre", name, "ppid", pcb.PPID)
	return pcb, nil
}

func (t *ProcessTable) Lookup(pid int) (*PCB, bool) {
	pcb, ok := t.processes[pid]
	return pcb, ok
}

// Remove saca al proceso de la tabla. Sus hijos vivos quedan huérfanos (PPID 0).
func (t *ProcessTable) Remove(pid int) {
	delete(t.processes, pid)
	for _, pcb := range t.processes {
		if pcb.PPID == pid {
			pcb.PPID = models.NoParent
			slog.Debug(fmt.Sprintf("## PID: %d - Queda huérfano", pcb.PID), "ppid_anterior", pid)
		}
	}
}

func (t *ProcessTable) Size() int {
	return len(t.processes)
}

// All devuelve los procesos vivos ordenados por PID.
func (t *ProcessTable) All() []*PCB {
	all := make([]*PCB, 0, len(t.processes))
	for _, pcb := range t.processes {
		all = append(all, pcb)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PID < all[j].PID })
	return all
}

func (t *ProcessTable) generatePID() int {
	pid := t.nextPID
	t.nextPID++
	return pid
}

// Discard deshace un Allocate cuando el proceso no llegó a crearse (por ejemplo, un fork sin
// memoria): lo saca de la tabla y borra el registro del padre.
func (t *ProcessTable) Discard(pcb *PCB, parent *PCB) {
	delete(t.processes, pcb.PID)
	if parent == nil {
		return
	}
	if index := parent.ChildIndex(pcb.PID); index >= 0 {
		parent.Children = append(parent.Children[:index], parent.Children[index+1:]...)
	}
}
