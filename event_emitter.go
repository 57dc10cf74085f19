package wstask

import (
	"sync"
)

type callback[T any] func(T)

type listenerEntry[V any] struct {
	id uint64
	fn callback[V]
}

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to listeners
// receiving values of type V. Every registration returns a Subscription that removes it.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]listenerEntry[V]
	nextID    uint64
	lock      sync.RWMutex
}

// Subscription removes a single listener registration. Off is safe to call more than once.
type Subscription interface {
	Off()
}

type subscription struct {
	once sync.Once
	off  func()
}

func (s *subscription) Off() {
	s.once.Do(s.off)
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]listenerEntry[V]),
	}
}

// On registers a new listener for the given event.
func (e *EventEmitterCallback[K, V]) On(event K, listener func(V)) Subscription {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listenerEntry[V]{id: id, fn: listener})

	return &subscription{off: func() { e.off(event, id) }}
}

func (e *EventEmitterCallback[K, V]) off(event K, id uint64) {
	e.lock.Lock()
	defer e.lock.Unlock()

	entries := e.listeners[event]
	for i, entry := range entries {
		if entry.id != id {
			continue
		}
		rest := make([]listenerEntry[V], 0, len(entries)-1)
		rest = append(rest, entries[:i]...)
		rest = append(rest, entries[i+1:]...)
		if len(rest) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = rest
		}
		return
	}
}

// Emit triggers all listeners registered for the given event synchronously.
// Listeners are called outside the lock, so a listener may remove itself or others.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, listener := range listeners {
		listener.fn(data)
	}
}

// Len returns the number of listeners registered for every event.
func (e *EventEmitterCallback[K, V]) Len() int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	n := 0
	for _, entries := range e.listeners {
		n += len(entries)
	}
	return n
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]listenerEntry[V])
}
