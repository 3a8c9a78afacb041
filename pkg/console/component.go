// Package console hosts UI components: it drives their mount/update/unmount
// lifecycle, hands each one an explicit Context, and serializes everything that
// touches component state on a single Loop.
package console

import (
	"errors"
	"fmt"

	"hqconsole/pkg/stream"
)

// ErrInvalidTransition is returned for a lifecycle call that is illegal in the
// component's current phase.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Phase is a component's lifecycle phase.
type Phase int

const (
	Unmounted Phase = iota
	Mounting
	Active
	Unmounting
)

func (p Phase) String() string {
	switch p {
	case Unmounted:
		return "unmounted"
	case Mounting:
		return "mounting"
	case Active:
		return "active"
	case Unmounting:
		return "unmounting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Component is anything the host can mount.
type Component interface {
	// Subscriptions declares the streams the component needs for props. It is
	// called at mount and again on every update.
	Subscriptions(props any) []stream.Descriptor
}

// Mounter is implemented by components that register event handlers or keep the
// Context. Mounted is called exactly once, after subscriptions are bound.
type Mounter interface {
	Mounted(ctx *Context) error
}

// Updater is implemented by components that keep their props.
type Updater interface {
	Updated(props any)
}

// Unmounter is implemented by components with teardown of their own.
type Unmounter interface {
	Unmounted()
}

// Renderer is implemented by components with a text rendering.
type Renderer interface {
	Render() string
}

func transitionError(id stream.ComponentID, op string, from Phase) error {
	return fmt.Errorf("%w: %s %s while %s", ErrInvalidTransition, op, id, from)
}
