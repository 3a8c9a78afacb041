package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
	"hqconsole/pkg/stream"
)

// AgentNameProps addresses one agent.
type AgentNameProps struct {
	Addr protocol.Address
	ID   protocol.Route
}

// AgentName shows "name @ location" of an agent.
type AgentName struct {
	base
}

// Subscriptions implements console.Component.
func (a *AgentName) Subscriptions(props any) []stream.Descriptor {
	p, ok := props.(AgentNameProps)
	if !ok || p.Addr == "" {
		return nil
	}
	return []stream.Descriptor{stream.Subscribe(p.Addr, p.ID, schema.TopicInfo, "info")}
}

// Info returns the agent info once loaded.
func (a *AgentName) Info() (schema.AgentInfo, bool) {
	if a.ctx == nil {
		return schema.AgentInfo{}, false
	}
	info, ok, err := stream.ValueAs[schema.AgentInfo](a.ctx.Get("info"))
	if err != nil || !ok {
		return schema.AgentInfo{}, false
	}
	return info, true
}

// Render implements console.Renderer.
func (a *AgentName) Render() string {
	info, ok := a.Info()
	if !ok {
		return loadingText
	}
	return fmt.Sprintf("%s @ %s", info.Name, info.Location)
}

// DatasourcesProps addresses the agent list of a node.
type DatasourcesProps struct {
	Addr protocol.Address
}

// DatasourcesTable lists the datasources reported by a node.
type DatasourcesTable struct {
	base
	props DatasourcesProps
}

// Subscriptions implements console.Component.
func (d *DatasourcesTable) Subscriptions(props any) []stream.Descriptor {
	p, ok := props.(DatasourcesProps)
	if !ok || p.Addr == "" {
		return nil
	}
	return []stream.Descriptor{stream.Subscribe(p.Addr, schema.RouteAgents, schema.TopicList, "list")}
}

// Updated implements console.Updater.
func (d *DatasourcesTable) Updated(props any) {
	if p, ok := props.(DatasourcesProps); ok {
		d.props = p
	}
}

// Rows returns the datasources once loaded.
func (d *DatasourcesTable) Rows() ([]schema.Datasource, bool) {
	if d.ctx == nil {
		return nil, false
	}
	rows, ok, err := stream.ValueAs[[]schema.Datasource](d.ctx.Get("list"))
	if err != nil || !ok {
		return nil, false
	}
	return rows, true
}

// AddNew asks whoever owns the datasource editor to open it.
func (d *DatasourcesTable) AddNew() {
	d.ctx.Events().Publish(bus.EventAddDatasource, map[string]any{})
}

func (d *DatasourcesTable) row(id string) (schema.Datasource, error) {
	rows, _ := d.Rows()
	for _, ds := range rows {
		if ds.ID == id {
			return ds, nil
		}
	}
	return schema.Datasource{}, fmt.Errorf("unknown datasource %q", id)
}

// ToggleButton returns the start/stop control of one datasource row.
func (d *DatasourcesTable) ToggleButton(id string) (*StartStopButton, error) {
	ds, err := d.row(id)
	if err != nil {
		return nil, err
	}
	b := &StartStopButton{base: d.base}
	b.Updated(StartStopProps{Addr: d.props.Addr, Route: protocol.Route(ds.ID), State: ds.State})
	return b, nil
}

// DeleteButton returns the delete control of one datasource row.
func (d *DatasourcesTable) DeleteButton(id string) (*DeleteButton, error) {
	ds, err := d.row(id)
	if err != nil {
		return nil, err
	}
	b := &DeleteButton{base: d.base}
	b.Updated(ResourceProps{Addr: d.props.Addr, Route: protocol.Route(ds.ID)})
	return b, nil
}

// Render implements console.Renderer.
func (d *DatasourcesTable) Render() string {
	rows, ok := d.Rows()
	if !ok {
		return loadingText
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Name", "Endpoint", "Current rate", "Last state change", "State")
	for _, ds := range rows {
		name := ds.Name
		if name == "" {
			name = ds.ID
		}
		t.Row(name, ds.Endpoint, fmt.Sprintf("%.1f", ds.CurrentRate), ds.LastStateChange, ds.State)
	}

	var b strings.Builder
	b.WriteString(button("Add new", false))
	b.WriteString("\n")
	b.WriteString(t.String())
	return b.String()
}
