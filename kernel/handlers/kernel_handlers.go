package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/web/handlers"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/web/server"
)

// StatusProvider es quien publica la foto del kernel (services.Kernel).
type StatusProvider interface {
	Status() models.KernelStatus
}

// RegisterHandlers registra los endpoints de consulta del kernel. Todos son de solo lectura.
func RegisterHandlers(mux *http.ServeMux, kernel StatusProvider) {
	mux.HandleFunc("GET /", handlers.HandshakeHandler("Bienvenido al módulo de Kernel"))
	mux.HandleFunc("GET /kernel", GetStatusHandler(kernel))
	mux.HandleFunc("GET /kernel/procesos", GetProcessesHandler(kernel))
	mux.HandleFunc("GET /kernel/procesos/{pid}", GetProcessHandler(kernel))
	mux.HandleFunc("GET /kernel/procesos/{pid}/paginas", GetPageTableHandler(kernel))
	mux.HandleFunc("GET /kernel/marcos", GetFramesHandler(kernel))
	mux.HandleFunc("GET /kernel/estadisticas", GetStatsHandler(kernel))
}

func GetStatusHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.SendJsonResponse(writer, kernel.Status())
	}
}

func GetProcessesHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		processes := kernel.Status().Processes
		if processes == nil {
			processes = []models.ProcessStatus{}
		}
		server.SendJsonResponse(writer, processes)
	}
}

func GetProcessHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		pid, err := strconv.Atoi(request.PathValue("pid"))
		if err != nil {
			http.Error(writer, "PID inválido", http.StatusBadRequest)
			return
		}

		for _, process := range kernel.Status().Processes {
			if process.PID == pid {
				server.SendJsonResponse(writer, process)
				return
			}
		}

		slog.Debug(fmt.Sprintf("## PID: %d - No existe el proceso consultado", pid))
		http.Error(writer, "Proceso no encontrado", http.StatusNotFound)
	}
}

// GetPageTableHandler vuelca la tabla de páginas del proceso.
func GetPageTableHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		pid, err := strconv.Atoi(request.PathValue("pid"))
		if err != nil {
			http.Error(writer, "PID inválido", http.StatusBadRequest)
			return
		}

		for _, pageTable := range kernel.Status().PageTables {
			if pageTable.PID == pid {
				slog.Debug(fmt.Sprintf("## PID: %d - Volcado de tabla de páginas solicitado", pid))
				server.SendJsonResponse(writer, pageTable)
				return
			}
		}

		http.Error(writer, "Proceso no encontrado", http.StatusNotFound)
	}
}

func GetFramesHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.SendJsonResponse(writer, kernel.Status().Frames)
	}
}

func GetStatsHandler(kernel StatusProvider) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.SendJsonResponse(writer, kernel.Status().Stats)
	}
}
