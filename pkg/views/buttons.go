package views

import (
	"hqconsole/pkg/command"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
)

// Resource states reported by the platform.
const (
	StateActive  = "active"
	StatePassive = "passive"
)

// StartStopProps addresses a startable resource and carries its current state.
type StartStopProps struct {
	Addr  protocol.Address
	Route protocol.Route
	State string
}

// StartStopButton sends stop to an active resource and start to a passive one.
type StartStopButton struct {
	base
	props StartStopProps
}

// Subscriptions implements console.Component. Buttons bind no streams.
func (b *StartStopButton) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Updated implements console.Updater.
func (b *StartStopButton) Updated(props any) {
	if p, ok := props.(StartStopProps); ok {
		b.props = p
	}
}

// Command returns the command a click sends.
func (b *StartStopButton) Command() string {
	if b.props.State == StateActive {
		return command.Stop
	}
	return command.Start
}

// Disabled reports whether the button is inert.
func (b *StartStopButton) Disabled() bool {
	if !b.connected() {
		return true
	}
	return b.props.State != StateActive && b.props.State != StatePassive
}

// Click sends the command.
func (b *StartStopButton) Click() error {
	if b.Disabled() {
		return ErrDisabled
	}
	return b.ctx.Execute(protocol.Envelope{
		Address: b.props.Addr,
		Route:   b.props.Route,
		Command: b.Command(),
		Payload: map[string]any{},
	})
}

// Render implements console.Renderer.
func (b *StartStopButton) Render() string {
	return button(b.Command(), b.Disabled())
}

// ResourceProps addresses a resource.
type ResourceProps struct {
	Addr  protocol.Address
	Route protocol.Route
}

// DeleteButton kills a resource after confirmation.
type DeleteButton struct {
	base
	props ResourceProps
}

// Subscriptions implements console.Component.
func (b *DeleteButton) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Updated implements console.Updater.
func (b *DeleteButton) Updated(props any) {
	if p, ok := props.(ResourceProps); ok {
		b.props = p
	}
}

// Click confirms and sends kill.
func (b *DeleteButton) Click() error {
	return b.ctx.Execute(protocol.Envelope{
		Address: b.props.Addr,
		Route:   b.props.Route,
		Command: command.Kill,
		Payload: map[string]any{},
	})
}

// Render implements console.Renderer.
func (b *DeleteButton) Render() string {
	return button("delete", false)
}

// ReplayProps addresses a gate by its config key.
type ReplayProps struct {
	Addr    protocol.Address
	CKey    string
	Enabled bool
}

// ReplayButton replays a gate after confirmation.
type ReplayButton struct {
	base
	props ReplayProps
}

// Subscriptions implements console.Component.
func (b *ReplayButton) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Updated implements console.Updater.
func (b *ReplayButton) Updated(props any) {
	if p, ok := props.(ReplayProps); ok {
		b.props = p
	}
}

// Disabled reports whether the button is inert.
func (b *ReplayButton) Disabled() bool {
	return !b.connected() || !b.props.Enabled
}

// Click confirms and sends replay to the gate.
func (b *ReplayButton) Click() error {
	if b.Disabled() {
		return ErrDisabled
	}
	return b.ctx.Execute(protocol.Envelope{
		Address: b.props.Addr,
		Route:   protocol.Route(b.props.CKey),
		Command: command.Replay,
		Payload: map[string]any{},
	})
}

// Render implements console.Renderer.
func (b *ReplayButton) Render() string {
	return button("Replay", b.Disabled())
}
