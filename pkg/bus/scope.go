package bus

import (
	"errors"
	"sync"
)

// ErrScopeClosed is returned when registering through a closed scope.
var ErrScopeClosed = errors.New("event scope closed")

// Scope registers handlers on behalf of one component and removes all of them on Close.
// A component acquires one scope at mount and closes it at unmount, so it can never
// leave a listener behind on another component's event type.
type Scope struct {
	bus     Bus
	mu      sync.Mutex
	handles []Handle
	closed  bool
}

func newScope(b Bus) *Scope {
	return &Scope{bus: b}
}

// NewScope creates a scope on any Bus implementation.
func NewScope(b Bus) *Scope {
	return newScope(b)
}

// Subscribe registers a handler owned by this scope.
func (s *Scope) Subscribe(typ EventType, handler Handler) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Handle{}, ErrScopeClosed
	}
	h := s.bus.Subscribe(typ, handler)
	if !h.Valid() {
		return Handle{}, ErrScopeClosed
	}
	s.handles = append(s.handles, h)
	return h, nil
}

// Publish forwards to the underlying bus.
func (s *Scope) Publish(typ EventType, detail any) {
	s.bus.Publish(typ, detail)
}

// Len returns the number of live registrations owned by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Close removes every handler registered through the scope. Closing twice is a no-op.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		s.bus.Unsubscribe(h)
	}
}
