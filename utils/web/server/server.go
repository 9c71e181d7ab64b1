package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// InitServer inicializa el servidor, en caso de no poder levantarlo retorna un error.
// Si handler es nil se usan las rutas registradas con http.HandleFunc.
//
// Parámetros:
//   - port: puerto donde se iniciará el servidor
//   - handler: rutas del módulo
//
// Ejemplo:
//
//	func main() {
//		mux := http.NewServeMux()
//		handlers.RegisterHandlers(mux, kernel)
//		err := server.InitServer(models.KernelConfig.PortKernel, mux)
//		if err != nil {
//			slog.Error(fmt.Sprintf("error initializing server: %v", err))
//		}
//	}
func InitServer(port int, handler http.Handler) error {
	addr := ":" + strconv.Itoa(port)
	slog.Debug("Servidor escuchando", "addr", addr)

	err := http.ListenAndServe(addr, handler)
	if err != nil {
		slog.Error(fmt.Sprintf("Error al escuchar en el puerto %s: %v", addr, err))
	}
	return err
}

// SendJsonResponse retorna la respues del servidor en formato JSON
//
// Parámetros:
//   - writer: el http.ResponseWriter con el que se escribe la respuesta HTTP
//   - data: cualquier estructura de datos que querés enviar al cliente, se convierte automáticamente a JSON.
//
// Ejemplo:
//
//	func HandshakeHandler(message string) func(http.ResponseWriter, *http.Request) {
//		return func(writer http.ResponseWriter, request *http.Request) {
//			server.SendJsonResponse(writer, message)
//		}
//	}
func SendJsonResponse(writer http.ResponseWriter, data any) {
	response, err := json.Marshal(data)
	if err != nil {
		http.Error(writer, "Error al convertir datos a JSON", http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	writer.Write(response)
}
