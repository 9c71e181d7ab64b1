package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// InitConfig lee el archivo de configuración y carga sus valores en config. Si el archivo no existe
// o no es un JSON válido se corta la ejecución con panic, ya que el kernel no puede arrancar sin él.
//
// Parámetros:
//   - filePath: ubicacion donde se encuentra el archivo de configuracion
//   - config: puntero a cualquier tipo de estructura
//
// Ejemplo:
//
//	func main() {
//		config.InitConfig("kernel/configs/kernel.json", &models.KernelConfig)
//	}
func InitConfig(filePath string, config any) {
	if err := LoadConfig(filePath, config); err != nil {
		panic(err)
	}
}

// LoadConfig es la variante de InitConfig que retorna el error en lugar de cortar la ejecución.
func LoadConfig(filePath string, config any) error {
	if err := setupConfig(filePath, config); err != nil {
		return fmt.Errorf("error al configurar el archivo %s: %w", filePath, err)
	}
	return nil
}

func setupConfig(filePath string, config any) error {
	configFile, err := os.Open(filePath)
	if err != nil {
		return err
	}

	defer configFile.Close()

	jsonParser := json.NewDecoder(configFile)
	jsonParser.DisallowUnknownFields()

	return jsonParser.Decode(config)
}
