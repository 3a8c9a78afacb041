// Package protocol defines the wire frames exchanged between the console and the hub.
// Frames are JSON text messages carried over a single WebSocket connection.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Address identifies a remote resource owner (a node or agent instance).
type Address string

// Route identifies a sub-resource or endpoint under an Address (a gate name, "agents", ...).
type Route string

// Topic identifies a data stream under an (Address, Route) pair ("info", "list", ...).
type Topic string

// Key is the exact routing key of a data stream.
type Key struct {
	Address Address `json:"address"`
	Route   Route   `json:"route"`
	Topic   Topic   `json:"topic"`
}

// NewKey builds a routing key.
func NewKey(address Address, route Route, topic Topic) Key {
	return Key{Address: address, Route: route, Topic: topic}
}

// String returns the key in address/route/topic form.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Address, k.Route, k.Topic)
}

// FrameType is the discriminator of a wire frame.
type FrameType string

const (
	FramePush        FrameType = "push"        // hub -> console
	FrameSubscribe   FrameType = "subscribe"   // console -> hub
	FrameUnsubscribe FrameType = "unsubscribe" // console -> hub
	FrameCommand     FrameType = "command"     // console -> hub
)

// Frame is the JSON format of every message on the connection.
type Frame struct {
	Type    FrameType       `json:"type"`
	Address Address         `json:"address"`
	Route   Route           `json:"route"`
	Topic   Topic           `json:"topic,omitempty"`
	Command string          `json:"command,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Key returns the routing key carried by the frame.
func (f Frame) Key() Key {
	return Key{Address: f.Address, Route: f.Route, Topic: f.Topic}
}

// Envelope is a one-shot, non-idempotent instruction for an addressed resource.
type Envelope struct {
	Address Address
	Route   Route
	Command string
	Payload any
}

// SubscribeFrame builds a subscribe frame for key.
func SubscribeFrame(key Key) Frame {
	return Frame{Type: FrameSubscribe, Address: key.Address, Route: key.Route, Topic: key.Topic}
}

// UnsubscribeFrame builds an unsubscribe frame for key.
func UnsubscribeFrame(key Key) Frame {
	return Frame{Type: FrameUnsubscribe, Address: key.Address, Route: key.Route, Topic: key.Topic}
}

// PushFrame builds a push frame carrying an already encoded payload.
func PushFrame(key Key, payload json.RawMessage) Frame {
	return Frame{Type: FramePush, Address: key.Address, Route: key.Route, Topic: key.Topic, Payload: payload}
}

// CommandFrame encodes env as a command frame. A nil payload is sent as an empty object.
func CommandFrame(env Envelope) (Frame, error) {
	if env.Address == "" {
		return Frame{}, fmt.Errorf("command %q: empty address", env.Command)
	}
	if env.Command == "" {
		return Frame{}, fmt.Errorf("command for %s/%s: empty command", env.Address, env.Route)
	}

	payload := env.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshaling %s payload: %w", env.Command, err)
	}

	return Frame{
		Type:    FrameCommand,
		Address: env.Address,
		Route:   env.Route,
		Command: env.Command,
		Payload: raw,
	}, nil
}

// Encode marshals a frame for the wire.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s frame: %w", f.Type, err)
	}
	return data, nil
}

// Decode parses a wire message into a frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("unmarshaling frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame without type")
	}
	return f, nil
}
