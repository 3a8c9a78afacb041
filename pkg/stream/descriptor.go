// Package stream keeps track of which server-side data streams each console component
// needs and applies pushed payloads to the owning components' state.
package stream

import (
	"errors"
	"fmt"

	"hqconsole/pkg/protocol"
)

// ComponentID identifies one mounted component instance.
type ComponentID string

var (
	// ErrDuplicateDataKey is returned by Bind when two descriptors share a dataKey.
	ErrDuplicateDataKey = errors.New("duplicate data key")
	// ErrInvalidDescriptor is returned by Bind for a descriptor without address or dataKey.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// Descriptor declares that a component wants the stream at (Address, Route, Topic)
// stored under DataKey in its state.
type Descriptor struct {
	Address protocol.Address `json:"address"`
	Route   protocol.Route   `json:"route"`
	Topic   protocol.Topic   `json:"topic"`
	DataKey string           `json:"dataKey"`
}

// Subscribe is shorthand for building a descriptor.
func Subscribe(address protocol.Address, route protocol.Route, topic protocol.Topic, dataKey string) Descriptor {
	return Descriptor{Address: address, Route: route, Topic: topic, DataKey: dataKey}
}

// Key returns the routing key of the descriptor.
func (d Descriptor) Key() protocol.Key {
	return protocol.NewKey(d.Address, d.Route, d.Topic)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s -> %s", d.Key(), d.DataKey)
}

func validate(descs []Descriptor) error {
	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if d.Address == "" || d.DataKey == "" {
			return fmt.Errorf("%w: %s", ErrInvalidDescriptor, d)
		}
		if _, ok := seen[d.DataKey]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateDataKey, d.DataKey)
		}
		seen[d.DataKey] = struct{}{}
	}
	return nil
}
