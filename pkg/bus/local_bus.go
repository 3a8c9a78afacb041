package bus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hqconsole/pkg/logger"
)

type listener struct {
	id      uint64
	handler Handler
	removed bool
}

// LocalBus is the in-process event bus. Delivery is synchronous.
type LocalBus struct {
	log          *logger.Logger
	logPublishes bool

	mu        sync.Mutex
	listeners map[EventType][]*listener
	nextID    uint64
	closed    bool

	// Metrics
	published   uint64
	delivered   uint64
	unheard     uint64
	panics      uint64
	metricsLock sync.Mutex
}

// NewLocalBus creates a new local event bus.
func NewLocalBus(log *logger.Logger) *LocalBus {
	return &LocalBus{
		log:       log,
		listeners: make(map[EventType][]*listener),
	}
}

// LogPublishes enables debug logging of every publish.
func (b *LocalBus) LogPublishes(enabled bool) {
	b.logPublishes = enabled
}

// Publish delivers an event to the listeners registered when the call starts.
// Listeners removed by an earlier handler during the same publish are skipped.
func (b *LocalBus) Publish(typ EventType, detail any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	snapshot := append([]*listener(nil), b.listeners[typ]...)
	b.mu.Unlock()

	b.count(&b.published, 1)

	if len(snapshot) == 0 {
		b.count(&b.unheard, 1)
		return
	}

	if b.logPublishes {
		b.log.Debug("Publishing event",
			zap.String("type", string(typ)),
			zap.Int("listeners", len(snapshot)))
	}

	ev := Event{Type: typ, Detail: detail}
	for _, l := range snapshot {
		if b.isRemoved(l) {
			continue
		}
		b.deliver(l, ev)
	}
}

func (b *LocalBus) deliver(l *listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.count(&b.panics, 1)
			b.log.Error("Event handler panicked",
				zap.String("type", string(ev.Type)),
				zap.Uint64("listener", l.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	l.handler(ev)
	b.count(&b.delivered, 1)
}

func (b *LocalBus) isRemoved(l *listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return l.removed
}

// Subscribe registers a handler for an event type. Multiple handlers may share a type.
// Subscribing on a closed bus returns an invalid handle.
func (b *LocalBus) Subscribe(typ EventType, handler Handler) Handle {
	if handler == nil {
		return Handle{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Handle{}
	}

	b.nextID++
	l := &listener{id: b.nextID, handler: handler}
	b.listeners[typ] = append(b.listeners[typ], l)

	b.log.Debug("Registered event listener",
		zap.String("type", string(typ)),
		zap.Uint64("listener", l.id))

	return Handle{typ: typ, id: l.id}
}

// Unsubscribe removes a registration.
func (b *LocalBus) Unsubscribe(h Handle) {
	if !h.Valid() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.listeners[h.typ]
	for i, l := range list {
		if l.id != h.id {
			continue
		}
		l.removed = true
		// Copy so in-flight publish snapshots keep their own backing array.
		next := make([]*listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.listeners, h.typ)
		} else {
			b.listeners[h.typ] = next
		}
		b.log.Debug("Unregistered event listener",
			zap.String("type", string(h.typ)),
			zap.Uint64("listener", h.id))
		return
	}
}

// Scope returns a new lifecycle-scoped registrar on this bus.
func (b *LocalBus) Scope() *Scope {
	return newScope(b)
}

// Listeners returns the number of listeners registered for a type.
func (b *LocalBus) Listeners(typ EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[typ])
}

// Close drops every listener. Publish and Subscribe become no-ops.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, list := range b.listeners {
		for _, l := range list {
			l.removed = true
		}
	}
	b.listeners = make(map[EventType][]*listener)

	b.log.Info("Event bus closed")
	return nil
}

// GetMetrics returns current bus metrics.
func (b *LocalBus) GetMetrics() map[string]uint64 {
	b.metricsLock.Lock()
	defer b.metricsLock.Unlock()

	return map[string]uint64{
		"published": b.published,
		"delivered": b.delivered,
		"unheard":   b.unheard,
		"panics":    b.panics,
	}
}

func (b *LocalBus) count(field *uint64, n uint64) {
	b.metricsLock.Lock()
	*field += n
	b.metricsLock.Unlock()
}
