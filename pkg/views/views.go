// Package views holds the console's view models. Each one is a console.Component
// with a plain-text Render; the TUI and the tests drive them through a console.Host.
package views

import (
	"errors"
	"fmt"

	"hqconsole/pkg/console"
	"hqconsole/pkg/stream"
)

// ErrDisabled is returned when a control is clicked while disabled.
var ErrDisabled = errors.New("control disabled")

const loadingText = "loading..."

// base keeps the Context handed over at mount.
type base struct {
	ctx *console.Context
}

// Mounted implements console.Mounter.
func (b *base) Mounted(ctx *console.Context) error {
	b.ctx = ctx
	return nil
}

func (b *base) connected() bool {
	return b.ctx != nil && b.ctx.Connected()
}

func button(label string, disabled bool) string {
	if disabled {
		return fmt.Sprintf("[%s (disabled)]", label)
	}
	return fmt.Sprintf("[%s]", label)
}

func renderChild(ctx *console.Context, id stream.ComponentID) string {
	if ctx == nil || id == "" {
		return ""
	}
	c, ok := ctx.Child(id)
	if !ok {
		return ""
	}
	if r, ok := c.(console.Renderer); ok {
		return r.Render()
	}
	return ""
}
