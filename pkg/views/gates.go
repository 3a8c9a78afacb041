package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
	"hqconsole/pkg/stream"
)

// GateSelectorID is the node selector of the gates page.
const GateSelectorID = "nodeSelectorForGates"

// Editor is the state of the gate configuration modal.
type Editor struct {
	Addr     protocol.Address
	CKey     string // empty when adding
	Title    string
	Defaults map[string]any
}

// GatesPage tracks the selected hub node, the gate table for it and the editor modal.
type GatesPage struct {
	base
	log      *logger.Logger
	selected protocol.Address
	editor   *Editor
	table    stream.ComponentID
}

// NewGatesPage creates an empty gates page.
func NewGatesPage(log *logger.Logger) *GatesPage {
	return &GatesPage{log: log}
}

// Subscriptions implements console.Component.
func (p *GatesPage) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Mounted implements console.Mounter.
func (p *GatesPage) Mounted(ctx *console.Context) error {
	p.ctx = ctx
	handlers := []struct {
		typ bus.EventType
		fn  bus.Handler
	}{
		{bus.EventAddGate, p.openModal},
		{bus.EventEditGate, p.openEditModal},
		{bus.EventGatesModalClosed, p.closeModal},
		{bus.NodeSelectorEvent(GateSelectorID), p.handleSelection},
	}
	for _, h := range handlers {
		if _, err := ctx.Events().Subscribe(h.typ, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *GatesPage) openModal(bus.Event) {
	p.editor = &Editor{
		Addr:  p.selected,
		Title: "Gate configuration",
		Defaults: map[string]any{
			"name":               "",
			"address":            "",
			"inFlightThreshold":  1000,
			"noSinkDropMessages": false,
		},
	}
	p.ctx.Invalidate()
}

func (p *GatesPage) openEditModal(ev bus.Event) {
	ref, err := bus.DecodeDetail[bus.GateRef](ev)
	if err != nil {
		p.log.Warn("Ignoring malformed editGate event", zap.Error(err))
		return
	}
	p.editor = &Editor{Addr: p.selected, CKey: ref.CKey, Title: "Gate configuration"}
	p.ctx.Invalidate()
}

func (p *GatesPage) closeModal(bus.Event) {
	p.editor = nil
	p.ctx.Invalidate()
}

func (p *GatesPage) handleSelection(ev bus.Event) {
	sel, err := bus.DecodeDetail[bus.NodeSelection](ev)
	if err != nil {
		p.log.Warn("Ignoring malformed node selection", zap.Error(err))
		return
	}
	p.selected = sel.Address

	props := GatesTableProps{Addr: sel.Address}
	if p.table == "" {
		id, err := p.ctx.MountChild(&GatesTable{}, props)
		if err != nil {
			p.log.Error("Failed to mount gates table", zap.Error(err))
			return
		}
		p.table = id
	} else if err := p.ctx.UpdateChild(p.table, props); err != nil {
		p.log.Error("Failed to update gates table", zap.Error(err))
	}
	p.ctx.Invalidate()
}

// CloseEditor closes the gate editor modal.
func (p *GatesPage) CloseEditor() {
	p.ctx.Events().Publish(bus.EventGatesModalClosed, map[string]any{})
}

// Selected returns the selected node, empty when none.
func (p *GatesPage) Selected() protocol.Address {
	return p.selected
}

// Editor returns the open editor, nil when the modal is closed.
func (p *GatesPage) Editor() *Editor {
	return p.editor
}

// Table returns the gate table of the selected node.
func (p *GatesPage) Table() (*GatesTable, bool) {
	if p.table == "" {
		return nil, false
	}
	c, ok := p.ctx.Child(p.table)
	if !ok {
		return nil, false
	}
	t, ok := c.(*GatesTable)
	return t, ok
}

// Render implements console.Renderer.
func (p *GatesPage) Render() string {
	var b strings.Builder
	if p.selected == "" {
		b.WriteString("node: none")
	} else {
		fmt.Fprintf(&b, "node: %s", p.selected)
	}
	if p.editor != nil {
		if p.editor.CKey == "" {
			fmt.Fprintf(&b, "\n%s: new gate", p.editor.Title)
		} else {
			fmt.Fprintf(&b, "\n%s: %s", p.editor.Title, p.editor.CKey)
		}
	}
	if t := renderChild(p.ctx, p.table); t != "" {
		b.WriteString("\n")
		b.WriteString(t)
	}
	return b.String()
}

// GatesTableProps addresses the gate list of a hub node.
type GatesTableProps struct {
	Addr protocol.Address
}

// GatesTable lists the gates of a node.
type GatesTable struct {
	base
	props GatesTableProps
}

// Subscriptions implements console.Component.
func (t *GatesTable) Subscriptions(props any) []stream.Descriptor {
	p, ok := props.(GatesTableProps)
	if !ok || p.Addr == "" {
		return nil
	}
	return []stream.Descriptor{stream.Subscribe(p.Addr, schema.RouteGates, schema.TopicList, "list")}
}

// Updated implements console.Updater.
func (t *GatesTable) Updated(props any) {
	if p, ok := props.(GatesTableProps); ok {
		t.props = p
	}
}

// Gates returns the gate rows once loaded.
func (t *GatesTable) Gates() ([]schema.Gate, bool) {
	if t.ctx == nil {
		return nil, false
	}
	rows, ok, err := stream.ValueAs[[]schema.Gate](t.ctx.Get("list"))
	if err != nil || !ok {
		return nil, false
	}
	return rows, true
}

// Add opens the editor for a new gate.
func (t *GatesTable) Add() {
	t.ctx.Events().Publish(bus.EventAddGate, map[string]any{})
}

// Edit opens the editor for an existing gate.
func (t *GatesTable) Edit(ckey string) {
	t.ctx.Events().Publish(bus.EventEditGate, bus.GateRef{CKey: ckey})
}

// ReplayButton returns the replay control of one gate row.
func (t *GatesTable) ReplayButton(ckey string) (*ReplayButton, error) {
	rows, _ := t.Gates()
	for _, g := range rows {
		if g.CKey == ckey {
			b := &ReplayButton{base: t.base}
			b.Updated(ReplayProps{Addr: t.props.Addr, CKey: g.CKey, Enabled: g.Replayable})
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown gate %q", ckey)
}

// Render implements console.Renderer.
func (t *GatesTable) Render() string {
	rows, ok := t.Gates()
	if !ok {
		return loadingText
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Key", "Name", "Address", "State", "")
	for _, g := range rows {
		replay := button("Replay", !t.connected() || !g.Replayable)
		tbl.Row(g.CKey, g.Name, g.Address, g.State, replay)
	}
	return tbl.String()
}
