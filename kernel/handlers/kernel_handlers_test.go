package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

type fixedStatus models.KernelStatus

func (s fixedStatus) Status() models.KernelStatus {
	return models.KernelStatus(s)
}

func newTestMux() *http.ServeMux {
	status := fixedStatus{
		Policy:     "RANDOM",
		CurrentPID: 2,
		Processes: []models.ProcessStatus{
			{PID: 1, Name: "padre", State: models.StateBlocked, Children: []models.ChildRecord{{PID: 2, Status: models.ChildParentWaiting}}},
			{PID: 2, PPID: 1, Name: "hijo", State: models.StateRunning},
		},
		Frames: []models.FrameStatus{{Frame: 0, InUse: true, PID: 1}},
		PageTables: []models.PageTableStatus{{
			PID: 1,
			PageTable: []machineModels.TranslationEntry{
				{VirtualPage: 0, PhysicalPage: 0, Valid: true},
				{VirtualPage: 1, PhysicalPage: machineModels.InvalidFrame},
			},
		}},
		Stats: models.Counters{TotalTicks: 42, NumPageFaults: 3},
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux, status)
	return mux
}

func TestGetProcessHandler(t *testing.T) {
	mux := newTestMux()

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/procesos/2", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	var process models.ProcessStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &process); err != nil || process.PPID != 1 || process.Name != "hijo" {
		t.Errorf("Expected the child process, got %s (%v)", recorder.Body.String(), err)
	}

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/procesos/9", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown PID, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/procesos/abc", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad PID, got %d", recorder.Code)
	}
}

func TestGetStatsHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	newTestMux().ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/estadisticas", nil))

	var stats models.Counters
	if err := json.Unmarshal(recorder.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Expected stats JSON, got %v", err)
	}
	if stats.TotalTicks != 42 || stats.NumPageFaults != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestGetFramesHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	newTestMux().ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/marcos", nil))

	var frames []models.FrameStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &frames); err != nil || len(frames) != 1 || !frames[0].InUse {
		t.Errorf("Expected one frame in use, got %s (%v)", recorder.Body.String(), err)
	}
}

func TestGetPageTableHandler(t *testing.T) {
	mux := newTestMux()

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/procesos/1/paginas", nil))

	var pageTable models.PageTableStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &pageTable); err != nil {
		t.Fatalf("Expected page table JSON, got %v", err)
	}
	if len(pageTable.PageTable) != 2 || pageTable.PageTable[1].Valid {
		t.Errorf("Expected two pages with the second one not resident, got %+v", pageTable.PageTable)
	}

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest("GET", "/kernel/procesos/2/paginas", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a process without address space, got %d", recorder.Code)
	}
}
