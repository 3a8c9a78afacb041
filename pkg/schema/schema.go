// Package schema validates streamed payloads before they reach component state.
// Schemas are registered per (route, topic), or per topic for every route, and a
// payload that does not match is reported as a *DecodeError instead of being applied.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"hqconsole/pkg/protocol"
)

// AnyRoute registers a schema for a topic under every route.
const AnyRoute protocol.Route = ""

// DecodeError reports a payload that failed decoding or validation.
type DecodeError struct {
	Key protocol.Key
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("payload for %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

type routeTopic struct {
	route protocol.Route
	topic protocol.Topic
}

// Registry maps (route, topic) to a resolved JSON schema.
type Registry struct {
	mu      sync.RWMutex
	schemas map[routeTopic]*jsonschema.Resolved
}

// NewRegistry creates an empty registry. Topics without a schema pass through.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[routeTopic]*jsonschema.Resolved)}
}

// Register resolves and stores a schema. Use AnyRoute to match every route.
func (r *Registry) Register(route protocol.Route, topic protocol.Topic, s *jsonschema.Schema) error {
	if s == nil {
		return fmt.Errorf("nil schema for %s/%s", route, topic)
	}
	resolved, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("resolving schema for %s/%s: %w", route, topic, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[routeTopic{route: route, topic: topic}] = resolved
	return nil
}

// RegisterType derives a schema from T and registers it. Unknown fields stay allowed
// so newer servers can extend payloads.
func RegisterType[T any](r *Registry, route protocol.Route, topic protocol.Topic) error {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return fmt.Errorf("deriving schema for %s/%s: %w", route, topic, err)
	}
	allowExtraProperties(s)
	return r.Register(route, topic, s)
}

// Has reports whether a schema applies to key.
func (r *Registry) Has(key protocol.Key) bool {
	return r.lookup(key) != nil
}

// Decode parses raw and validates it against the schema for key.
// The result is the generic JSON value (map[string]any, []any, float64, ...).
func (r *Registry) Decode(key protocol.Key, raw json.RawMessage) (any, error) {
	var value any
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}

	resolved := r.lookup(key)
	if resolved == nil {
		return value, nil
	}
	if err := resolved.Validate(value); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	return value, nil
}

func (r *Registry) lookup(key protocol.Key) *jsonschema.Resolved {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.schemas[routeTopic{route: key.Route, topic: key.Topic}]; ok {
		return s
	}
	return r.schemas[routeTopic{route: AnyRoute, topic: key.Topic}]
}

// As converts a decoded payload into T.
func As[T any](value any) (T, error) {
	var out T
	if v, ok := value.(T); ok {
		return v, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func allowExtraProperties(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	s.AdditionalProperties = nil
	for _, p := range s.Properties {
		allowExtraProperties(p)
	}
	allowExtraProperties(s.Items)
}
