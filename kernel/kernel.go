package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	kernelHandler "github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/handlers"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/services"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/config"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/log"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/web/server"
)

const (
	ConfigPath = "kernel/configs/kernel.json"
	LogPath    = "./logs/kernel.log"
)

func main() {
	if len(os.Args) < 3 {
		slog.Error("Faltan los parametros necesarios: -x [programa] o -F [archivo_batch]")
		return
	}

	//Parametros
	mode, target := os.Args[1], os.Args[2]

	config.InitConfig(ConfigPath, &models.KernelConfig)
	log.InitLogger(LogPath, models.KernelConfig.LogLevel)

	slog.Debug(fmt.Sprintf("Port Kernel: %d", models.KernelConfig.PortKernel))

	loader := services.FSLoader{FS: os.DirFS(models.KernelConfig.ProgramsPath)}
	kernel, err := services.NewKernel(models.KernelConfig, loader, os.Stdout)
	if err != nil {
		slog.Error(fmt.Sprintf("Error al iniciar el kernel: %v", err))
		os.Exit(1)
	}

	switch mode {
	case "-x":
		_, err = kernel.StartProcess(target, models.DefaultPriority)
	case "-F":
		err = startBatch(kernel, target)
	default:
		err = fmt.Errorf("parametro desconocido %s, se esperaba -x o -F", mode)
	}
	if err != nil {
		slog.Error("Error al iniciar proceso", "err", err)
		os.Exit(1)
	}

	/* ----------> ENDPOINTS <----------*/
	if models.KernelConfig.PortKernel > 0 {
		mux := http.NewServeMux()
		kernelHandler.RegisterHandlers(mux, kernel)

		go func() {
			if err := server.InitServer(models.KernelConfig.PortKernel, mux); err != nil {
				slog.Error(fmt.Sprintf("error initializing server: %v", err))
			}
		}()
	}

	if err := kernel.Run(); err != nil {
		slog.Error(fmt.Sprintf("La simulación terminó con error: %v", err))
		os.Exit(1)
	}
}

func startBatch(kernel *services.Kernel, batchPath string) error {
	batch, err := os.Open(batchPath)
	if err != nil {
		return err
	}
	defer batch.Close()

	return kernel.StartBatch(batch)
}
