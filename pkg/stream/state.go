package stream

import (
	"hqconsole/pkg/schema"
)

// Value is the content of one dataKey slot. The zero Value is Loading: nothing has
// arrived yet, which is distinct from any payload including null or an empty list.
type Value struct {
	loaded bool
	data   any
}

// Loading is the initial value of every slot.
var Loading = Value{}

// Loaded wraps a received payload.
func Loaded(data any) Value {
	return Value{loaded: true, data: data}
}

// Loaded reports whether a payload has been received.
func (v Value) Loaded() bool {
	return v.loaded
}

// Data returns the decoded payload, nil while loading.
func (v Value) Data() any {
	return v.data
}

// ValueAs converts a loaded value to T. ok is false while the slot is loading.
func ValueAs[T any](v Value) (out T, ok bool, err error) {
	if !v.loaded {
		return out, false, nil
	}
	out, err = schema.As[T](v.data)
	if err != nil {
		return out, true, err
	}
	return out, true, nil
}

// State is a read-only view of one component's slots.
type State interface {
	Get(dataKey string) Value
}

type stateFunc func(dataKey string) Value

func (f stateFunc) Get(dataKey string) Value {
	return f(dataKey)
}
