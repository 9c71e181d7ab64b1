package services

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// PhysicalMemory es la vista de la memoria principal que necesita el asignador.
type PhysicalMemory interface {
	Frame(n int) []byte
	NumPhysPages() int
	PageSize() int
}

// PageOwner es el espacio de direcciones dueño de las páginas de un PID. El asignador lo usa al
// desalojar para encontrar la entrada que apunta al marco y guardar su contenido.
type PageOwner interface {
	PageEntry(vpn int) *machineModels.TranslationEntry
	SavePage(vpn int, content []byte)
}

// FrameInfo es el registro de dueño de un marco: el par (pid, página virtual) que lo usa.
type FrameInfo struct {
	InUse       bool
	PID         int
	VirtualPage int
	Shared      bool
	References  int // procesos que tienen mapeado un marco compartido
}

type FrameAllocator struct {
	policy     models.ReplacementPolicy
	memory     PhysicalMemory
	stats      *models.Stats
	random     *rand.Rand
	frames     []FrameInfo
	free       []int // marcos devueltos por procesos que terminaron
	nextUnused int   // primer marco que nunca se entregó
	owners     map[int]PageOwner
}

// NewFrameAllocator falla si la política existe pero no está implementada, para no caer en otra
// política sin avisar.
func NewFrameAllocator(policy models.ReplacementPolicy, memory PhysicalMemory, stats *models.Stats, seed int64) (*FrameAllocator, error) {
	if !policy.Implemented() {
		return nil, fmt.Errorf("%w: %s", models.ErrPolicyNotImplemented, policy)
	}

	slog.Debug("Asignador de marcos inicializado", "politica", policy.String(), "marcos", memory.NumPhysPages())
	return &FrameAllocator{
		policy: policy,
		memory: memory,
		stats:  stats,
		random: rand.New(rand.NewSource(seed)),
		frames: make([]FrameInfo, memory.NumPhysPages()),
		owners: make(map[int]PageOwner),
	}, nil
}

// Attach registra el espacio de direcciones de un PID para poder resolver sus páginas al desalojar.
func (a *FrameAllocator) Attach(pid int, owner PageOwner) {
	a.owners[pid] = owner
}

// Detach quita el registro solo si sigue siendo el mismo espacio (exec registra el nuevo antes de
// liberar el viejo).
func (a *FrameAllocator) Detach(pid int, owner PageOwner) {
	if current, ok := a.owners[pid]; ok && current == owner {
		delete(a.owners, pid)
	}
}

// Allocate entrega un marco para la página vpn del proceso pid. Con RANDOM, si no quedan marcos
// libres se desaloja uno al azar que no sea compartido ni avoidFrame.
func (a *FrameAllocator) Allocate(pid int, vpn int, avoidFrame int) (int, error) {
	a.stats.AddPageFault()

	frame, err := a.claim(avoidFrame)
	if err != nil {
		return machineModels.InvalidFrame, err
	}

	a.frames[frame] = FrameInfo{InUse: true, PID: pid, VirtualPage: vpn}
	slog.Debug(fmt.Sprintf("## PID: %d - Marco %d asignado a la página %d", pid, frame, vpn))
	return frame, nil
}

// AllocateShared entrega un marco que no se desaloja nunca y que puede mapearse en varios procesos.
func (a *FrameAllocator) AllocateShared(pid int, vpn int, avoidFrame int) (int, error) {
	frame, err := a.Allocate(pid, vpn, avoidFrame)
	if err != nil {
		return machineModels.InvalidFrame, err
	}

	a.frames[frame].Shared = true
	a.frames[frame].References = 1
	return frame, nil
}

// RetainShared suma un proceso que mapea el marco compartido (fork).
func (a *FrameAllocator) RetainShared(frame int) {
	if frame < 0 || frame >= len(a.frames) || !a.frames[frame].Shared {
		slog.Warn("Se intentó retener un marco que no es compartido", "marco", frame)
		return
	}
	a.frames[frame].References++
}

// Release devuelve un marco. Un marco compartido vuelve a estar libre cuando lo suelta el último
// proceso que lo tenía mapeado.
func (a *FrameAllocator) Release(pid int, frame int) {
	if frame < 0 || frame >= len(a.frames) || !a.frames[frame].InUse {
		slog.Warn("Se intentó liberar un marco que no está en uso", "pid", pid, "marco", frame)
		return
	}

	info := &a.frames[frame]
	if info.Shared {
		info.References--
		if info.References > 0 {
			return
		}
	} else if info.PID != pid {
		slog.Error(fmt.Sprintf("## PID: %d - El marco %d pertenece al PID %d, no se libera", pid, frame, info.PID))
		return
	}

	*info = FrameInfo{}
	a.free = append(a.free, frame)
	slog.Debug(fmt.Sprintf("## PID: %d - Marco %d liberado", pid, frame))
}

// CheckCapacity verifica, sin política de reemplazo, que entren pages páginas en los marcos que
// quedan. Con reemplazo siempre hay lugar.
func (a *FrameAllocator) CheckCapacity(pages int) error {
	if a.policy != models.PolicyNone {
		return nil
	}
	if available := a.FreeFrames(); pages > available {
		return fmt.Errorf("%w: se necesitan %d marcos y quedan %d", models.ErrPhysicalMemoryExhausted, pages, available)
	}
	return nil
}

// CheckSharedCapacity rechaza una región compartida de pages páginas que no podría quedar residente:
// sin reemplazo tienen que quedar marcos libres y con reemplazo no alcanza con desalojar los que
// no son compartidos.
func (a *FrameAllocator) CheckSharedCapacity(pages int) error {
	available := a.FreeFrames()
	if a.policy != models.PolicyNone {
		available = len(a.frames) - a.sharedFrames()
	}
	if pages > available {
		return fmt.Errorf("%w: se piden %d marcos y se pueden entregar %d", models.ErrSharedRegionTooLarge, pages, available)
	}
	return nil
}

func (a *FrameAllocator) sharedFrames() int {
	shared := 0
	for _, info := range a.frames {
		if info.InUse && info.Shared {
			shared++
		}
	}
	return shared
}

// FreeFrames cuenta los marcos que se pueden entregar sin desalojar.
func (a *FrameAllocator) FreeFrames() int {
	return len(a.free) + len(a.frames) - a.nextUnused
}

func (a *FrameAllocator) Info(frame int) FrameInfo {
	return a.frames[frame]
}

func (a *FrameAllocator) Policy() models.ReplacementPolicy {
	return a.policy
}

// Snapshot arma la foto de los marcos para el servidor de estado.
func (a *FrameAllocator) Snapshot() []models.FrameStatus {
	snapshot := make([]models.FrameStatus, len(a.frames))
	for i, info := range a.frames {
		snapshot[i] = models.FrameStatus{
			Frame:       i,
			InUse:       info.InUse,
			PID:         info.PID,
			VirtualPage: info.VirtualPage,
			Shared:      info.Shared,
			References:  info.References,
		}
	}
	return snapshot
}

func (a *FrameAllocator) claim(avoidFrame int) (int, error) {
	if n := len(a.free); n > 0 {
		frame := a.free[n-1]
		a.free = a.free[:n-1]
		return frame, nil
	}

	if a.nextUnused < len(a.frames) {
		frame := a.nextUnused
		a.nextUnused++
		return frame, nil
	}

	switch a.policy {
	case models.PolicyNone:
		return machineModels.InvalidFrame, fmt.Errorf("%w: los %d marcos están ocupados", models.ErrPhysicalMemoryExhausted, len(a.frames))
	case models.PolicyRandom:
		victim, err := a.randomVictim(avoidFrame)
		if err != nil {
			return machineModels.InvalidFrame, err
		}
		a.evict(victim)
		return victim, nil
	default:
		return machineModels.InvalidFrame, fmt.Errorf("%w: %s", models.ErrPolicyNotImplemented, a.policy)
	}
}

func (a *FrameAllocator) randomVictim(avoidFrame int) (int, error) {
	candidates := make([]int, 0, len(a.frames))
	for frame, info := range a.frames {
		if info.InUse && !info.Shared && frame != avoidFrame {
			candidates = append(candidates, frame)
		}
	}
	if len(candidates) == 0 {
		return machineModels.InvalidFrame, models.ErrNoEvictableFrame
	}
	return candidates[a.random.Intn(len(candidates))], nil
}

// evict libera el marco de su dueño actual. Si la página estaba modificada y el proceso sigue vivo
// se copia a su backup. La entrada siempre queda no residente.
func (a *FrameAllocator) evict(frame int) {
	info := a.frames[frame]
	a.stats.AddPageEviction()

	owner, alive := a.owners[info.PID]
	if !alive {
		slog.Debug("Marco desalojado sin dueño vivo", "marco", frame, "pid", info.PID)
		return
	}

	entry := owner.PageEntry(info.VirtualPage)
	if entry == nil || !entry.Valid || entry.PhysicalPage != frame {
		slog.Warn(fmt.Sprintf("## PID: %d - La página %d no apunta al marco %d", info.PID, info.VirtualPage, frame))
		return
	}

	if entry.Dirty {
		owner.SavePage(info.VirtualPage, a.memory.Frame(frame))
		entry.Backup = true
		entry.Dirty = false
	}
	entry.Valid = false
	entry.PhysicalPage = machineModels.InvalidFrame

	slog.Debug(fmt.Sprintf("## PID: %d - Página %d desalojada del marco %d", info.PID, info.VirtualPage, frame), "backup", entry.Backup)
}
