package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Para su uso se debe posicionar en la raíz del proyecto
// > go run ./scripts/update_config.go replacement_policy RANDOM
// > go run ./scripts/update_config.go num_phys_pages 8 page_size 64 read_only_code true

func main() {
	// Verificar que se pasen argumentos en pares: clave1 valor1 clave2 valor2 ...
	if len(os.Args) < 3 || len(os.Args)%2 != 1 {
		fmt.Println("Uso: update_config <clave_1> <valor_1> [<clave_2> <valor_2> ...]")
		fmt.Println("Ejemplo: update_config num_phys_pages 8 replacement_policy NONE")
		return
	}

	updates := make(map[string]any)
	for i := 1; i < len(os.Args); i += 2 {
		key := os.Args[i]
		valueStr := os.Args[i+1]

		// Números y booleanos se guardan con su tipo, el resto como string
		var parsedValue any
		if err := json.Unmarshal([]byte(valueStr), &parsedValue); err != nil {
			parsedValue = valueStr
		}
		updates[key] = parsedValue
	}

	fmt.Println("Valores a actualizar:")
	for k, v := range updates {
		fmt.Printf("  %s: %v\n", k, v)
	}

	configPath := filepath.Join("kernel", "configs")
	err := filepath.Walk(configPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fmt.Printf("  Error al acceder %s: %v\n", path, err)
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}
		updateFile(path, updates)
		return nil
	})
	if err != nil {
		fmt.Printf("Error al buscar archivos en la carpeta %s: %v\n", configPath, err)
	}

	fmt.Println("\nProceso de actualización de configuraciones finalizado.")
}

func updateFile(path string, updates map[string]any) {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("  Error al leer el archivo %s: %v\n", path, err)
		return
	}

	var data map[string]any
	if err := json.Unmarshal(fileContent, &data); err != nil {
		fmt.Printf("  Error al parsear JSON en el archivo %s: %v\n", path, err)
		return
	}

	modified := false
	for updateKey, updateValue := range updates {
		// Solo se tocan claves que ya existen, el kernel rechaza las desconocidas
		if _, ok := data[updateKey]; ok {
			data[updateKey] = updateValue
			fmt.Printf("    Modificada '%s' en %s a '%v'\n", updateKey, path, updateValue)
			modified = true
		}
	}

	if !modified {
		fmt.Printf("  No se encontraron claves a actualizar en %s.\n", path)
		return
	}

	newJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Printf("  Error al serializar JSON en el archivo %s: %v\n", path, err)
		return
	}
	if err := os.WriteFile(path, newJSON, 0644); err != nil {
		fmt.Printf("  Error al escribir el archivo %s: %v\n", path, err)
		return
	}
	fmt.Printf("  El archivo %s ha sido actualizado correctamente.\n", path)
}
