package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// InitLogger permite loguear tanto en consola como en archivo según el nivel que se le pase.
// Si logPath viene vacío solo se loguea por consola.
//
// Parámetros:
//   - logPath: la ubicación donde se va encontrar el archivo, se crea el directorio si no existe
//   - logLevel: nivel de logueo, este dato viene definido en el archivo de config.
//
// Ejemplo:
//
//	func main() {
//		log.InitLogger("./logs/kernel.log", "INFO")
//	}
func InitLogger(logPath string, logLevel string) {
	var writer io.Writer = os.Stdout

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			panic(err)
		}

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
		if err != nil {
			panic(err)
		}

		// Consola y archivo a la vez.
		writer = io.MultiWriter(os.Stdout, logFile)
	}

	level, err := convertStringToLogLevel(logLevel)

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))

	// Escribimos en el log el warning que obtenemos por no setear el logLevel
	if err != nil {
		slog.Warn(err.Error())
	}

	slog.Debug("Se ha configurado correctamente el logger", "archivo", logPath, "nivel", level.String())
}

// convertStringToLogLevel traduce el nivel de log del config al tipo slog.Level.
func convertStringToLogLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("no existe el nivel de log %q, se coloca INFO por defecto", levelStr)
	}
}
