package services

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/utils/semaphore"
)

// Console es la consola de salida de los programas. Cada caracter espera a que termine la
// escritura anterior, así la salida conserva el orden de las syscalls.
type Console struct {
	out       io.Writer
	writeDone *semaphore.Semaphore
	stats     *models.Stats
}

func NewConsole(out io.Writer, stats *models.Stats) *Console {
	return &Console{
		out:       out,
		writeDone: semaphore.NewSemaphore(1, 1),
		stats:     stats,
	}
}

func (c *Console) PutChar(ch byte) {
	c.writeDone.Wait()
	defer c.writeDone.Signal()

	if _, err := c.out.Write([]byte{ch}); err != nil {
		slog.Warn(fmt.Sprintf("No se pudo escribir en la consola: %v", err))
		return
	}
	c.stats.AddConsoleCharWritten()
}

func (c *Console) PutString(s string) {
	for i := 0; i < len(s); i++ {
		c.PutChar(s[i])
	}
}
