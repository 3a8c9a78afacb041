// Package command sends one-shot instructions (start, stop, kill, replay) to
// addressed resources. Commands are not idempotent, so a command is transmitted at
// most once and never retried.
package command

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

// Well-known commands.
const (
	Start  = "start"
	Stop   = "stop"
	Kill   = "kill"
	Replay = "replay"
)

// ErrNotConnected is returned by Send while the session is down.
var ErrNotConnected = fmt.Errorf("command channel: %w", transport.ErrNotConnected)

// Channel is the command side of the hub session.
type Channel struct {
	log    *logger.Logger
	sender transport.Sender

	mu     sync.Mutex
	sent   map[string]uint64
	failed uint64
}

// NewChannel creates a command channel over sender.
func NewChannel(log *logger.Logger, sender transport.Sender) *Channel {
	return &Channel{
		log:    log,
		sender: sender,
		sent:   make(map[string]uint64),
	}
}

// Send encodes and transmits one command. It fails fast when disconnected and
// never prompts: confirming destructive commands is the caller's job.
func (c *Channel) Send(address protocol.Address, route protocol.Route, command string, payload any) error {
	return c.SendEnvelope(protocol.Envelope{
		Address: address,
		Route:   route,
		Command: command,
		Payload: payload,
	})
}

// SendEnvelope is Send for a prepared envelope.
func (c *Channel) SendEnvelope(env protocol.Envelope) error {
	f, err := protocol.CommandFrame(env)
	if err != nil {
		return err
	}

	if !c.sender.Connected() {
		c.countFailure()
		return ErrNotConnected
	}
	if err := c.sender.Send(f); err != nil {
		c.countFailure()
		if errors.Is(err, transport.ErrNotConnected) {
			return ErrNotConnected
		}
		return fmt.Errorf("sending %s to %s/%s: %w", env.Command, env.Address, env.Route, err)
	}

	c.mu.Lock()
	c.sent[env.Command]++
	c.mu.Unlock()

	c.log.Info("Command sent",
		zap.String("command", env.Command),
		zap.String("address", string(env.Address)),
		zap.String("route", string(env.Route)))
	return nil
}

// Available reports whether Send can currently succeed.
func (c *Channel) Available() bool {
	return c.sender.Connected()
}

// GetMetrics returns sent counts per command plus failed sends.
func (c *Channel) GetMetrics() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]uint64, len(c.sent)+1)
	for cmd, n := range c.sent {
		out["sent_"+cmd] = n
	}
	out["failed"] = c.failed
	return out
}

func (c *Channel) countFailure() {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}
