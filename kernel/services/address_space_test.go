package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
	machine "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/services"
)

// openSpace carga name desde files como espacio de direcciones del pid.
func openSpace(t *testing.T, loader FSLoader, name string, pid int, allocator *FrameAllocator, m *machine.Machine, stackSize int) *AddressSpace {
	t.Helper()

	executable, err := loader.Open(name)
	if err != nil {
		t.Fatalf("Expected %s to open, got %v", name, err)
	}
	space, err := NewAddressSpace(pid, executable, name, allocator, m, stackSize, false)
	if err != nil {
		t.Fatalf("Expected address space, got %v", err)
	}
	return space
}

func readPage(m *machine.Machine, space *AddressSpace, vpn int) []byte {
	return append([]byte(nil), m.Frame(space.PageEntry(vpn).PhysicalPage)...)
}

func TestNewAddressSpace_PageCount(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 4)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 20), make([]byte, 5), 10)})

	space := openSpace(t, loader, "prog", 1, allocator, m, 32)

	// 20 + 5 + 10 + 32 = 67 bytes -> 5 páginas de 16
	if space.NumPages() != 5 {
		t.Errorf("Expected 5 pages, got %d", space.NumPages())
	}
	for vpn, entry := range space.PageTable() {
		if entry.Valid || entry.Dirty || entry.Shared || entry.Backup || entry.PhysicalPage != machineModels.InvalidFrame {
			t.Errorf("Expected page %d to start non resident, got %+v", vpn, entry)
		}
	}
	if allocator.FreeFrames() != 4 {
		t.Errorf("Expected no frames allocated at creation, got %d free", allocator.FreeFrames())
	}
}

func TestNewAddressSpace_ReadOnlyCode(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 4)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 24), nil, 0)})

	executable, _ := loader.Open("prog")
	space, err := NewAddressSpace(1, executable, "prog", allocator, m, 16, true)
	if err != nil {
		t.Fatalf("Expected address space, got %v", err)
	}

	table := space.PageTable()
	if !table[0].ReadOnly || table[1].ReadOnly || table[2].ReadOnly {
		t.Errorf("Expected only the page wholly inside the code to be read only, got %+v", table)
	}
}

func TestNewAddressSpace_NoneExceedsMemory(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyNone, 16, 2)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})

	executable, _ := loader.Open("prog")
	if _, err := NewAddressSpace(1, executable, "prog", allocator, m, 32, false); err == nil {
		t.Errorf("Expected ErrPhysicalMemoryExhausted for 3 pages in 2 frames")
	}
}

func TestHandlePageFault_LoadsFromExecutable(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 4)
	codeBytes := bytes.Repeat([]byte{0xaa}, 16)
	data := []byte("hola")
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(codeBytes, data, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 16)

	if err := space.HandlePageFault(17, machineModels.InvalidFrame); err != nil {
		t.Fatalf("Expected fault to be resolved, got %v", err)
	}

	page := readPage(m, space, 1)
	if !bytes.Equal(page[:4], data) || page[4] != 0 {
		t.Errorf("Expected data segment followed by zeros, got %v", page)
	}
	if err := space.HandlePageFault(16*space.NumPages(), machineModels.InvalidFrame); err == nil {
		t.Errorf("Expected error outside the address space")
	}
}

func TestPageEvictionRoundTrip(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 2)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 32)
	space.RestoreState()

	space.HandlePageFault(16, machineModels.InvalidFrame)
	for i := 0; i < 4; i++ {
		if exception := m.WriteMem(16+i*4, 4, int32(1000+i)); exception != machineModels.NoException {
			t.Fatalf("Expected write to succeed, got %s", exception)
		}
	}
	written := readPage(m, space, 1)

	space.HandlePageFault(0, machineModels.InvalidFrame)
	codeFrame := space.PageEntry(0).PhysicalPage

	// La única víctima posible es la página 1.
	space.HandlePageFault(32, codeFrame)
	if space.PageEntry(1).Valid || !space.PageEntry(1).Backup {
		t.Fatalf("Expected page 1 evicted with backup, got %+v", *space.PageEntry(1))
	}

	space.HandlePageFault(16, space.PageEntry(2).PhysicalPage)
	if !bytes.Equal(readPage(m, space, 1), written) {
		t.Errorf("Expected page 1 restored from backup %v, got %v", written, readPage(m, space, 1))
	}
	value, _ := m.ReadMem(16+3*4, 4)
	if value != 1003 {
		t.Errorf("Expected 1003 after restore, got %d", value)
	}
}

func TestEvictionBetweenAddressSpaces(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 2)
	codeBytes := bytes.Repeat([]byte{7}, 16)
	loader := testLoader(map[string][]byte{
		"a": BuildExecutable(codeBytes, nil, 0),
		"b": BuildExecutable(make([]byte, 16), nil, 0),
	})

	a := openSpace(t, loader, "a", 1, allocator, m, 16)
	a.HandlePageFault(0, machineModels.InvalidFrame)
	a.HandlePageFault(16, machineModels.InvalidFrame)
	a.RestoreState()
	m.WriteMem(20, 4, 0x1234)
	lastWritten := readPage(m, a, 1)

	b := openSpace(t, loader, "b", 2, allocator, m, 0)
	if err := b.HandlePageFault(0, machineModels.InvalidFrame); err != nil {
		t.Fatalf("Expected B's fault to evict a page of A, got %v", err)
	}

	evicted := -1
	for vpn, entry := range a.PageTable() {
		if !entry.Valid {
			if evicted != -1 {
				t.Fatalf("Expected exactly one page of A evicted")
			}
			evicted = vpn
		}
	}
	if evicted == -1 {
		t.Fatalf("Expected one page of A to be evicted")
	}
	if evicted == 1 && !bytes.Equal(a.BackupPage(1), lastWritten) {
		t.Errorf("Expected A's backup to hold the dirty page, got %v", a.BackupPage(1))
	}

	if err := a.HandlePageFault(evicted*16, b.PageEntry(0).PhysicalPage); err != nil {
		t.Fatalf("Expected A's page to be restored, got %v", err)
	}
	want := codeBytes
	if evicted == 1 {
		want = lastWritten
	}
	if !bytes.Equal(readPage(m, a, evicted), want) {
		t.Errorf("Expected restored content %v, got %v", want, readPage(m, a, evicted))
	}
}

func TestForkAddressSpace(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 8)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(bytes.Repeat([]byte{3}, 16), nil, 0)})
	parent := openSpace(t, loader, "prog", 1, allocator, m, 32)

	parent.HandlePageFault(0, machineModels.InvalidFrame)
	parent.HandlePageFault(16, machineModels.InvalidFrame)
	sharedStart, err := parent.GrowWithSharedRegion(10, machineModels.InvalidFrame)
	if err != nil {
		t.Fatalf("Expected shared region, got %v", err)
	}
	parent.RestoreState()
	m.WriteMem(16, 4, 77)
	m.WriteMem(sharedStart, 4, 88)

	child, err := ForkAddressSpace(parent, 2, loader)
	if err != nil {
		t.Fatalf("Expected fork to succeed, got %v", err)
	}

	parentTable, childTable := parent.PageTable(), child.PageTable()
	if len(childTable) != len(parentTable) {
		t.Fatalf("Expected %d pages in the child, got %d", len(parentTable), len(childTable))
	}
	for vpn, parentEntry := range parentTable {
		childEntry := childTable[vpn]
		switch {
		case parentEntry.Shared:
			if childEntry.PhysicalPage != parentEntry.PhysicalPage || !childEntry.Shared {
				t.Errorf("Expected shared page %d to alias frame %d, got %+v", vpn, parentEntry.PhysicalPage, childEntry)
			}
		case parentEntry.Valid:
			if childEntry.PhysicalPage == parentEntry.PhysicalPage {
				t.Errorf("Expected private page %d to get its own frame", vpn)
			}
			if !bytes.Equal(readPage(m, parent, vpn), readPage(m, child, vpn)) {
				t.Errorf("Expected page %d content to be copied", vpn)
			}
			if childEntry.Dirty != parentEntry.Dirty || childEntry.Backup != parentEntry.Backup {
				t.Errorf("Expected flags of page %d to be copied, got %+v", vpn, childEntry)
			}
		default:
			if childEntry.Valid {
				t.Errorf("Expected non resident page %d to stay non resident", vpn)
			}
		}
	}

	shared := parent.PageEntry(sharedStart / 16).PhysicalPage
	if allocator.Info(shared).References != 2 {
		t.Errorf("Expected 2 references to the shared frame, got %d", allocator.Info(shared).References)
	}

	child.Release()
	parent.Release()
	if allocator.FreeFrames() != 8 {
		t.Errorf("Expected every frame back after release, got %d free", allocator.FreeFrames())
	}
}

func TestForkAddressSpace_CopiesBackup(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 2)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	parent := openSpace(t, loader, "prog", 1, allocator, m, 32)
	parent.RestoreState()

	parent.HandlePageFault(16, machineModels.InvalidFrame)
	m.WriteMem(16, 4, 55)
	parent.HandlePageFault(0, machineModels.InvalidFrame)
	parent.HandlePageFault(32, parent.PageEntry(0).PhysicalPage)

	child, err := ForkAddressSpace(parent, 2, loader)
	if err != nil {
		t.Fatalf("Expected fork to succeed, got %v", err)
	}
	if !child.PageEntry(1).Backup || !bytes.Equal(child.BackupPage(1), parent.BackupPage(1)) {
		t.Errorf("Expected the evicted page backup to be copied to the child")
	}

	child.RestoreState()
	child.HandlePageFault(16, machineModels.InvalidFrame)
	if value, _ := m.ReadMem(16, 4); value != 55 {
		t.Errorf("Expected the child to restore 55 from its backup, got %d", value)
	}
}

func TestGrowWithSharedRegion(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 8)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 16)
	space.HandlePageFault(0, machineModels.InvalidFrame)
	before := space.PageTable()

	first, err := space.GrowWithSharedRegion(20, machineModels.InvalidFrame)
	if err != nil {
		t.Fatalf("Expected growth, got %v", err)
	}
	second, err := space.GrowWithSharedRegion(1, machineModels.InvalidFrame)
	if err != nil {
		t.Fatalf("Expected growth, got %v", err)
	}

	if first != 32 || second != 64 {
		t.Errorf("Expected regions at 32 and 64, got %d and %d", first, second)
	}
	if space.NumPages() != 5 {
		t.Errorf("Expected 5 pages, got %d", space.NumPages())
	}

	after := space.PageTable()
	for vpn, entry := range before {
		if after[vpn] != entry {
			t.Errorf("Expected page %d unchanged, got %+v (was %+v)", vpn, after[vpn], entry)
		}
	}
	for vpn := 2; vpn < 5; vpn++ {
		entry := after[vpn]
		if !entry.Valid || !entry.Shared || entry.Dirty {
			t.Errorf("Expected shared resident page %d, got %+v", vpn, entry)
		}
		if !bytes.Equal(m.Frame(entry.PhysicalPage), make([]byte, 16)) {
			t.Errorf("Expected shared page %d zero filled", vpn)
		}
	}
}

func TestGrowWithSharedRegion_TooLarge(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 8)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 16)
	before := space.PageTable()

	if _, err := space.GrowWithSharedRegion(1<<30, machineModels.InvalidFrame); !errors.Is(err, models.ErrSharedRegionTooLarge) {
		t.Fatalf("Expected ErrSharedRegionTooLarge, got %v", err)
	}
	if space.NumPages() != len(before) || len(space.PageTable()) != len(before) {
		t.Errorf("Expected the space to keep %d pages, got %d", len(before), space.NumPages())
	}
	if allocator.FreeFrames() != 8 {
		t.Errorf("Expected no frames taken by a rejected region, got %d free", allocator.FreeFrames())
	}
}

func TestGrowWithSharedRegion_RollbackKeepsEvictedPage(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 3)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 32)
	space.RestoreState()

	space.HandlePageFault(0, machineModels.InvalidFrame)
	codeFrame := space.PageEntry(0).PhysicalPage
	space.HandlePageFault(16, codeFrame)
	m.WriteMem(16, 4, 4242)

	// Entran los 3 marcos en la cuenta, pero el tercero no se consigue: el de código no se desaloja.
	if _, err := space.GrowWithSharedRegion(48, codeFrame); !errors.Is(err, models.ErrNoEvictableFrame) {
		t.Fatalf("Expected ErrNoEvictableFrame, got %v", err)
	}
	if space.NumPages() != 3 {
		t.Errorf("Expected 3 pages after rollback, got %d", space.NumPages())
	}

	entry := space.PageEntry(1)
	if entry.Valid || !entry.Backup {
		t.Fatalf("Expected page 1 evicted with backup during the growth, got %+v", *entry)
	}
	if !space.PageEntry(0).Valid {
		t.Errorf("Expected the code page to stay resident")
	}
	for frame := 0; frame < 3; frame++ {
		if allocator.Info(frame).Shared {
			t.Errorf("Expected frame %d released by the rollback", frame)
		}
	}

	space.RestoreState()
	if err := space.HandlePageFault(16, codeFrame); err != nil {
		t.Fatalf("Expected page 1 to be restored, got %v", err)
	}
	if value, _ := m.ReadMem(16, 4); value != 4242 {
		t.Errorf("Expected 4242 restored from backup, got %d", value)
	}
}

func TestGrowWithSharedRegion_KeepsCodeFrame(t *testing.T) {
	m, allocator, _ := testMemory(t, models.PolicyRandom, 16, 2)
	loader := testLoader(map[string][]byte{"prog": BuildExecutable(make([]byte, 16), nil, 0)})
	space := openSpace(t, loader, "prog", 1, allocator, m, 16)

	space.HandlePageFault(0, machineModels.InvalidFrame)
	codeFrame := space.PageEntry(0).PhysicalPage
	space.HandlePageFault(16, codeFrame)

	if _, err := space.GrowWithSharedRegion(16, codeFrame); err != nil {
		t.Fatalf("Expected growth, got %v", err)
	}
	if entry := space.PageEntry(0); !entry.Valid || entry.PhysicalPage != codeFrame {
		t.Errorf("Expected the code page to keep frame %d, got %+v", codeFrame, *entry)
	}
	if space.PageEntry(1).Valid {
		t.Errorf("Expected page 1 to be the evicted one")
	}
}
