package services

// IntStatus es el nivel de interrupciones de la máquina simulada.
type IntStatus int

const (
	IntOff IntStatus = iota
	IntOn
)

func (s IntStatus) String() string {
	if s == IntOn {
		return "ON"
	}
	return "OFF"
}

// Interrupt guarda el nivel de interrupciones. Lo modifica solo el hilo que tiene la CPU, por eso
// no usa locks.
type Interrupt struct {
	level IntStatus
}

// SetLevel cambia el nivel y devuelve el anterior.
func (i *Interrupt) SetLevel(level IntStatus) IntStatus {
	old := i.level
	i.level = level
	return old
}

func (i *Interrupt) Level() IntStatus {
	return i.level
}

// Disable deshabilita las interrupciones y devuelve la función que restaura el nivel anterior.
//
// Ejemplo:
//
//	restore := interrupt.Disable()
//	defer restore()
func (i *Interrupt) Disable() func() {
	old := i.SetLevel(IntOff)
	return func() {
		i.SetLevel(old)
	}
}
