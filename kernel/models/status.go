package models

import (
	machineModels "github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

type ProcessStatus struct {
	PID        int           `json:"pid"`
	PPID       int           `json:"ppid"`
	Name       string        `json:"name"`
	State      ThreadState   `json:"state"`
	Priority   int           `json:"priority"`
	NumPages   int           `json:"num_pages"`
	InstrCount int64         `json:"instr_count"`
	Children   []ChildRecord `json:"children"`
}

type FrameStatus struct {
	Frame       int  `json:"frame"`
	InUse       bool `json:"in_use"`
	PID         int  `json:"pid"`
	VirtualPage int  `json:"virtual_page"`
	Shared      bool `json:"shared"`
	References  int  `json:"references"`
}

// KernelStatus es la foto del kernel que publica el servidor HTTP.
type KernelStatus struct {
	Policy     string            `json:"policy"`
	PageSize   int               `json:"page_size"`
	CurrentPID int               `json:"current_pid"`
	Halted     bool              `json:"halted"`
	ReadyQueue []int             `json:"ready_queue"`
	SleepQueue []int             `json:"sleep_queue"`
	Processes  []ProcessStatus   `json:"processes"`
	Frames     []FrameStatus     `json:"frames"`
	PageTables []PageTableStatus `json:"page_tables"`
	Stats      Counters          `json:"stats"`
}

// PageTableStatus es el volcado de la tabla de páginas de un proceso.
type PageTableStatus struct {
	PID       int                              `json:"pid"`
	PageTable []machineModels.TranslationEntry `json:"page_table"`
}
