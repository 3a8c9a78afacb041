// Package transport owns the single logical connection between the console and the hub.
// Only a Session writes to the physical connection; everything else talks to it through
// Send and receives inbound frames and connection changes through a Listener.
package transport

import (
	"errors"

	"hqconsole/pkg/protocol"
)

var (
	// ErrNotConnected is returned by Send while the session has no live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrQueueFull is returned by Send when the outbound buffer is full.
	ErrQueueFull = errors.New("outbound queue full")
)

// Listener receives session notifications. Calls come from the session's read
// goroutine, one at a time, in the order the events happened.
type Listener interface {
	OnConnect()
	OnDisconnect(err error)
	OnFrame(f protocol.Frame)
}

// Sender is the write side of a session.
type Sender interface {
	// Send enqueues one frame without blocking.
	Send(f protocol.Frame) error
	Connected() bool
}

// Session is a Sender that also reports inbound traffic to a Listener.
type Session interface {
	Sender
	// Listen sets the listener. It must be called before the session starts.
	Listen(l Listener)
}

// Listeners fans notifications out to several listeners in order.
type Listeners []Listener

// OnConnect implements Listener.
func (ls Listeners) OnConnect() {
	for _, l := range ls {
		l.OnConnect()
	}
}

// OnDisconnect implements Listener.
func (ls Listeners) OnDisconnect(err error) {
	for _, l := range ls {
		l.OnDisconnect(err)
	}
}

// OnFrame implements Listener.
func (ls Listeners) OnFrame(f protocol.Frame) {
	for _, l := range ls {
		l.OnFrame(f)
	}
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Connect    func()
	Disconnect func(err error)
	Frame      func(f protocol.Frame)
}

// OnConnect implements Listener.
func (l ListenerFuncs) OnConnect() {
	if l.Connect != nil {
		l.Connect()
	}
}

// OnDisconnect implements Listener.
func (l ListenerFuncs) OnDisconnect(err error) {
	if l.Disconnect != nil {
		l.Disconnect(err)
	}
}

// OnFrame implements Listener.
func (l ListenerFuncs) OnFrame(f protocol.Frame) {
	if l.Frame != nil {
		l.Frame(f)
	}
}
