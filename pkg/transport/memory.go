package transport

import (
	"sync"

	"hqconsole/pkg/protocol"
)

// MemorySession is a process-local session used by tests and offline tooling.
// Connect, Disconnect and Push notify the listener synchronously on the caller's goroutine.
type MemorySession struct {
	mu        sync.Mutex
	listener  Listener
	connected bool
	sent      []protocol.Frame
	failSend  error
}

// NewMemorySession creates a disconnected in-memory session.
func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

// Listen implements Session.
func (m *MemorySession) Listen(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// Send records the frame when connected.
func (m *MemorySession) Send(f protocol.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if m.failSend != nil {
		return m.failSend
	}
	m.sent = append(m.sent, f)
	return nil
}

// Connected implements Sender.
func (m *MemorySession) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connect marks the session connected and notifies the listener.
func (m *MemorySession) Connect() {
	m.mu.Lock()
	m.connected = true
	l := m.listener
	m.mu.Unlock()

	if l != nil {
		l.OnConnect()
	}
}

// Disconnect marks the session disconnected and notifies the listener.
func (m *MemorySession) Disconnect(err error) {
	m.mu.Lock()
	m.connected = false
	l := m.listener
	m.mu.Unlock()

	if l != nil {
		l.OnDisconnect(err)
	}
}

// Push delivers an inbound frame to the listener.
func (m *MemorySession) Push(f protocol.Frame) {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()

	if l != nil {
		l.OnFrame(f)
	}
}

// FailSends makes every later Send return err. Nil restores normal behavior.
func (m *MemorySession) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSend = err
}

// Sent returns a copy of every frame sent so far.
func (m *MemorySession) Sent() []protocol.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Frame(nil), m.sent...)
}

// SentOfType returns the sent frames of one type.
func (m *MemorySession) SentOfType(t protocol.FrameType) []protocol.Frame {
	var out []protocol.Frame
	for _, f := range m.Sent() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Reset clears the record of sent frames.
func (m *MemorySession) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
