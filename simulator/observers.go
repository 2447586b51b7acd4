package simulator

import "sync"

// observers is an ordered list of handlers guarded by one lock.
// Handlers are invoked outside the lock, so a handler may add or remove handlers.
type observers[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []observer[T]
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

func (o *observers[T]) add(fn func(T)) (remove func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.handlers = append(o.handlers, observer[T]{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()

		for i, h := range o.handlers {
			if h.id == id {
				o.handlers = append(o.handlers[:i:i], o.handlers[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[T]) notify(val T) {
	o.mu.Lock()
	handlers := o.handlers
	o.mu.Unlock()

	for _, h := range handlers {
		if h.fn != nil {
			h.fn(val)
		}
	}
}
