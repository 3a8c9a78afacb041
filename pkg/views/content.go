package views

import (
	"strings"

	"go.uber.org/zap"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/stream"
)

// Sections selectable from the navigation bar.
const (
	SectionGates  = "gates"
	SectionFlows  = "flows"
	SectionAgents = "agents"
	SectionNotif  = "notif"
)

// Sections lists the navigation bar in display order.
var Sections = []string{SectionGates, SectionFlows, SectionAgents, SectionNotif}

// ContentManager switches the main area on navBarSelection events.
type ContentManager struct {
	base
	log       *logger.Logger
	selection string
}

// NewContentManager creates a content manager showing the gates section.
func NewContentManager(log *logger.Logger) *ContentManager {
	return &ContentManager{log: log, selection: SectionGates}
}

// Subscriptions implements console.Component.
func (m *ContentManager) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Mounted implements console.Mounter.
func (m *ContentManager) Mounted(ctx *console.Context) error {
	m.ctx = ctx
	_, err := ctx.Events().Subscribe(bus.EventNavBarSelection, m.handleSelection)
	return err
}

func (m *ContentManager) handleSelection(ev bus.Event) {
	sel, err := bus.DecodeDetail[bus.NavSelection](ev)
	if err != nil {
		m.log.Warn("Ignoring malformed navigation event", zap.Error(err))
		return
	}
	m.selection = sel.ID
	m.ctx.Invalidate()
}

// Selection returns the current section. Unknown sections render nothing.
func (m *ContentManager) Selection() string {
	return m.selection
}

// Select publishes a navigation event, as the navigation bar does.
func (m *ContentManager) Select(id string) {
	m.ctx.Events().Publish(bus.EventNavBarSelection, bus.NavSelection{ID: id})
}

// Render implements console.Renderer.
func (m *ContentManager) Render() string {
	parts := make([]string, 0, len(Sections))
	for _, s := range Sections {
		if s == m.selection {
			parts = append(parts, "["+s+"]")
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
