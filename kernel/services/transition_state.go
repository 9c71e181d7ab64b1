package services

import (
	"fmt"
	"log/slog"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
)

// transitionState cambia el estado de planificación de un hilo y lo loguea.
func transitionState(pcb *PCB, newState models.ThreadState) {
	oldState := pcb.State
	if oldState == newState {
		return
	}
	pcb.State = newState
	slog.Info(fmt.Sprintf("## (%d) Pasa del estado %s al estado %s", pcb.PID, oldState, newState))
}
