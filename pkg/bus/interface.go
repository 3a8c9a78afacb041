// Package bus provides the process-wide local event bus used by console components
// to notify each other of UI-only events (selection changes, modal open/close).
// Events are never sourced from the server and are not retained: a listener that
// registers after a publish never sees it.
package bus

import (
	"encoding/json"
	"fmt"
)

// EventType names a local event.
type EventType string

// Event is a published local event.
type Event struct {
	Type   EventType `json:"type"`
	Detail any       `json:"detail,omitempty"`
}

// Handler processes a local event. It runs synchronously on the publisher's goroutine.
type Handler func(ev Event)

// Handle identifies one registration and is used to remove it.
type Handle struct {
	typ EventType
	id  uint64
}

// Type returns the event type the handle was registered for.
func (h Handle) Type() EventType {
	return h.typ
}

// Valid reports whether the handle came from a successful registration.
func (h Handle) Valid() bool {
	return h.id != 0
}

// Bus is the interface of the local event bus.
type Bus interface {
	// Publish delivers an event synchronously, in registration order, to every
	// listener registered for its type when Publish starts.
	Publish(typ EventType, detail any)

	// Subscribe registers a handler for an event type.
	Subscribe(typ EventType, handler Handler) Handle

	// Unsubscribe removes a registration. Unknown or already removed handles are ignored.
	Unsubscribe(h Handle)

	// Scope returns a lifecycle-scoped registrar whose Close removes exactly its own handlers.
	Scope() *Scope

	// Close drops every listener; later publishes are no-ops.
	Close() error

	// GetMetrics returns current bus metrics.
	GetMetrics() map[string]uint64
}

// DecodeDetail converts an event detail into T. Details published as T are returned
// as is; map-shaped details are converted through JSON.
func DecodeDetail[T any](ev Event) (T, error) {
	var out T
	switch d := ev.Detail.(type) {
	case T:
		return d, nil
	case *T:
		if d != nil {
			return *d, nil
		}
		return out, fmt.Errorf("%s: nil detail", ev.Type)
	case nil:
		return out, fmt.Errorf("%s: missing detail", ev.Type)
	}

	raw, err := json.Marshal(ev.Detail)
	if err != nil {
		return out, fmt.Errorf("%s: marshal detail: %w", ev.Type, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: decode detail: %w", ev.Type, err)
	}
	return out, nil
}
