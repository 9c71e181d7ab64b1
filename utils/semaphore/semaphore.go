package semaphore

// Semaphore es un semáforo contador implementado con un canal. Cada lugar ocupado del canal es una
// unidad tomada, por lo que el valor inicial indica cuántas unidades están disponibles.
type Semaphore struct {
	c chan struct{}
}

// NewSemaphore crea un semáforo con capacidad máxima capacity e initial unidades disponibles.
//
// Ejemplo:
//
//	func main() {
//		writeDone := semaphore.NewSemaphore(1, 1)
//		writeDone.Wait()
//		// escribir un caracter
//		writeDone.Signal()
//	}
func NewSemaphore(capacity int, initial int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	if initial > capacity {
		initial = capacity
	}

	s := &Semaphore{c: make(chan struct{}, capacity)}
	for i := 0; i < capacity-initial; i++ {
		s.c <- struct{}{}
	}
	return s
}

// Wait (P) decrementa el semáforo, bloquea si es 0
func (s *Semaphore) Wait() {
	s.c <- struct{}{}
}

// Signal (V) incrementa el semáforo
func (s *Semaphore) Signal() {
	select {
	case <-s.c:
	default:
		// Capacidad completa, no hace nada para prevenir incremento excesivo
	}
}
