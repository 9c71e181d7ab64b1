package list

import (
	"fmt"
	"sync"
)

// List define las operaciones de las colas del kernel (ready, dormidos).
type List[T any] interface {
	Add(item T)                                  // Añadir un elemento al final de la lista
	Dequeue() (T, error)                         // Eliminar y devolver el primer elemento de la lista
	Get(index int) (T, error)                    // Obtener un elemento a partir de un índice dado
	GetAll() []T                                 // Retorna una copia de los elementos de la lista
	InsertSorted(item T, less func(a, b T) bool) // Inserta manteniendo el orden dado por less
	Size() int                                   // Retornar el tamaño de la lista
}

// ArrayList implements List
type ArrayList[T any] struct {
	mu    sync.RWMutex
	items []T
}

// Add inserta un elemento al final de la lista.
//
// Parámetros:
//   - item: Elemento a insertar.
//
// Ejemplo:
//
//	func main() {
//		ready := &list.ArrayList[*PCB]{}
//		ready.Add(pcb)
//	}
func (list *ArrayList[T]) Add(item T) {
	list.mu.Lock() // Bloqueo exclusivo para evitar cambios simultáneos
	defer list.mu.Unlock()

	list.items = append(list.items, item)
}

// Dequeue elimina y devuelve el primer elemento de la cola.
// En caso de que la lista se encuentre vacía retorna el valor "cero" del tipo T y un error.
//
// Ejemplo:
//
//	func main() {
//		numbers := &list.ArrayList[int]{}
//		numbers.Add(10)
//		numbers.Add(20)
//		value, _ := numbers.Dequeue()
//		fmt.Println("Valor: ", value) //output: 10
//	}
func (list *ArrayList[T]) Dequeue() (T, error) {
	list.mu.Lock()
	defer list.mu.Unlock()

	if len(list.items) == 0 {
		var zero T
		return zero, fmt.Errorf("list is empty")
	}
	value := list.items[0]
	var zero T
	list.items[0] = zero // no retener punteros en el arreglo subyacente
	list.items = list.items[1:]
	return value, nil
}

// Get devuelve el elemento en el índice proporcionado.
func (list *ArrayList[T]) Get(index int) (T, error) {
	list.mu.RLock()
	defer list.mu.RUnlock()

	if index < 0 || index >= len(list.items) {
		var zero T
		return zero, fmt.Errorf("index out of range: %d", index)
	}
	return list.items[index], nil
}

// GetAll retorna una copia de todos los elementos que se encuentran en la lista.
func (list *ArrayList[T]) GetAll() []T {
	list.mu.RLock()
	defer list.mu.RUnlock()

	itemsCopy := make([]T, len(list.items))
	copy(itemsCopy, list.items)
	return itemsCopy
}

// InsertSorted inserta un elemento manteniendo la lista ordenada según less.
// Los elementos iguales conservan el orden de llegada (el nuevo va detrás).
//
// Parámetros:
//   - item: Elemento a insertar.
//   - less: criterio de orden.
//
// Ejemplo:
//
//	func main() {
//		sleeping := &list.ArrayList[int]{}
//		less := func(a, b int) bool { return a < b }
//		sleeping.InsertSorted(30, less)
//		sleeping.InsertSorted(10, less)
//		sleeping.InsertSorted(20, less) // [10, 20, 30]
//	}
func (list *ArrayList[T]) InsertSorted(item T, less func(a, b T) bool) {
	list.mu.Lock()
	defer list.mu.Unlock()

	index := len(list.items)
	for i, current := range list.items {
		if less(item, current) {
			index = i
			break
		}
	}

	var zero T
	list.items = append(list.items, zero)
	copy(list.items[index+1:], list.items[index:])
	list.items[index] = item
}

// Size devuelve el tamaño de la lista.
func (list *ArrayList[T]) Size() int {
	list.mu.RLock()
	defer list.mu.RUnlock()

	return len(list.items)
}
