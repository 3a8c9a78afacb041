package stream

import (
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

// Receiver connects a session to the registry and demux: every connect replays the
// bound interest and every push is dispatched.
type Receiver struct {
	log      *logger.Logger
	registry *Registry
	demux    *Demux
}

var _ transport.Listener = (*Receiver)(nil)

// NewReceiver creates a session listener for registry and demux.
func NewReceiver(log *logger.Logger, registry *Registry, demux *Demux) *Receiver {
	return &Receiver{log: log, registry: registry, demux: demux}
}

// OnConnect implements transport.Listener.
func (r *Receiver) OnConnect() {
	r.registry.Resubscribe()
}

// OnDisconnect implements transport.Listener. Bindings are kept for the next connect.
func (r *Receiver) OnDisconnect(err error) {
	r.log.Debug("Session disconnected, keeping bindings",
		zap.Int("keys", len(r.registry.Keys())),
		zap.Error(err))
}

// OnFrame implements transport.Listener. Inbound traffic means the session is
// draining, so interest refused by a full queue is retried first.
func (r *Receiver) OnFrame(f protocol.Frame) {
	r.registry.Retry()
	r.demux.DispatchFrame(f)
}
