package console

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/confirm"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
)

// ErrNotConfirmed is returned by Execute when the confirmation policy refused.
var ErrNotConfirmed = errors.New("command not confirmed")

// Context is everything a mounted component may use. It replaces implicit trait
// merging: a component reaches state, events and commands only through it.
type Context struct {
	id        stream.ComponentID
	state     stream.State
	events    *bus.Scope
	commands  *command.Channel
	policy    *confirm.Policy
	host      *Host
	connected atomic.Bool

	mu       sync.Mutex
	children []stream.ComponentID
}

// ID returns the component instance ID.
func (c *Context) ID() stream.ComponentID {
	return c.id
}

// Get reads one of the component's data slots.
func (c *Context) Get(dataKey string) stream.Value {
	return c.state.Get(dataKey)
}

// State returns the component's slot reader.
func (c *Context) State() stream.State {
	return c.state
}

// Events returns the component's event scope. It is closed at unmount.
func (c *Context) Events() *bus.Scope {
	return c.events
}

// Commands returns the command channel.
func (c *Context) Commands() *command.Channel {
	return c.commands
}

// Connected reports the hub connection state as last seen by the host.
func (c *Context) Connected() bool {
	return c.connected.Load()
}

// Execute runs env through the confirmation policy and sends it once.
func (c *Context) Execute(env protocol.Envelope) error {
	if c.policy != nil {
		decision, err := c.policy.Check(env)
		if err != nil {
			return fmt.Errorf("confirming %s: %w", env.Command, err)
		}
		if decision != confirm.Approved {
			return fmt.Errorf("%w: %s %s/%s", ErrNotConfirmed, env.Command, env.Address, env.Route)
		}
	}
	return c.commands.SendEnvelope(env)
}

// Invalidate asks the host to re-render the component, for changes that come from
// local events rather than streamed data.
func (c *Context) Invalidate() {
	c.host.render(c.id)
}

// MountChild mounts a component owned by this one. Children are unmounted before
// their parent is torn down.
func (c *Context) MountChild(child Component, props any) (stream.ComponentID, error) {
	id, err := c.host.Mount(child, props)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.children = append(c.children, id)
	c.mu.Unlock()
	return id, nil
}

// UpdateChild passes new props to a child.
func (c *Context) UpdateChild(id stream.ComponentID, props any) error {
	return c.host.Update(id, props)
}

// UnmountChild unmounts a child early.
func (c *Context) UnmountChild(id stream.ComponentID) error {
	c.mu.Lock()
	for i, existing := range c.children {
		if existing == id {
			c.children = append(c.children[:i:i], c.children[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return c.host.Unmount(id)
}

// Child returns a mounted child component.
func (c *Context) Child(id stream.ComponentID) (Component, bool) {
	return c.host.Component(id)
}

func (c *Context) takeChildren() []stream.ComponentID {
	c.mu.Lock()
	defer c.mu.Unlock()
	children := c.children
	c.children = nil
	return children
}
