package views

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
)

// DashboardProps picks the agent and the hub node shown by a Dashboard.
type DashboardProps struct {
	Agent   protocol.Address
	AgentID protocol.Route
	Node    protocol.Address
}

// Dashboard is the console's top-level page: the navigation bar, the gates page
// of the selected node and the datasources of one agent.
type Dashboard struct {
	base
	log   *logger.Logger
	props DashboardProps

	Content     *ContentManager
	Gates       *GatesPage
	AgentName   *AgentName
	Datasources *DatasourcesTable

	agentName   stream.ComponentID
	datasources stream.ComponentID
}

// NewDashboard creates a dashboard. Its children are mounted with it.
func NewDashboard(log *logger.Logger) *Dashboard {
	return &Dashboard{
		log:         log,
		Content:     NewContentManager(log),
		Gates:       NewGatesPage(log),
		AgentName:   &AgentName{},
		Datasources: &DatasourcesTable{},
	}
}

// Subscriptions implements console.Component.
func (d *Dashboard) Subscriptions(any) []stream.Descriptor {
	return nil
}

// Mounted implements console.Mounter.
func (d *Dashboard) Mounted(ctx *console.Context) error {
	d.ctx = ctx
	if _, err := ctx.MountChild(d.Content, nil); err != nil {
		return err
	}
	if _, err := ctx.MountChild(d.Gates, nil); err != nil {
		return err
	}
	id, err := ctx.MountChild(d.AgentName, nil)
	if err != nil {
		return err
	}
	d.agentName = id
	if id, err = ctx.MountChild(d.Datasources, nil); err != nil {
		return err
	}
	d.datasources = id
	return nil
}

// Updated implements console.Updater.
func (d *Dashboard) Updated(props any) {
	p, ok := props.(DashboardProps)
	if !ok {
		return
	}
	prev := d.props
	d.props = p

	if p.Agent != prev.Agent || p.AgentID != prev.AgentID {
		if err := d.ctx.UpdateChild(d.agentName, AgentNameProps{Addr: p.Agent, ID: p.AgentID}); err != nil {
			d.log.Warn("Failed to update agent name", zap.Error(err))
		}
		if err := d.ctx.UpdateChild(d.datasources, DatasourcesProps{Addr: p.Agent}); err != nil {
			d.log.Warn("Failed to update datasources", zap.Error(err))
		}
	}
	if p.Node != "" && p.Node != prev.Node {
		d.SelectNode(p.Node)
	}
}

// SelectNode publishes a node selection for the gates page.
func (d *Dashboard) SelectNode(addr protocol.Address) {
	d.ctx.Events().Publish(bus.NodeSelectorEvent(GateSelectorID), bus.NodeSelection{Address: addr})
}

// Select switches the visible section.
func (d *Dashboard) Select(section string) {
	d.Content.Select(section)
}

// Render implements console.Renderer.
func (d *Dashboard) Render() string {
	var b strings.Builder
	b.WriteString(d.Content.Render())
	b.WriteString("\n\n")

	switch d.Content.Selection() {
	case SectionGates:
		b.WriteString(d.Gates.Render())
	case SectionAgents:
		if d.props.Agent == "" {
			b.WriteString("agent: none")
			break
		}
		fmt.Fprintf(&b, "agent: %s (%s)\n", d.AgentName.Render(), d.props.Agent)
		b.WriteString(d.Datasources.Render())
	default:
		b.WriteString("nothing to show")
	}

	if !d.connected() {
		b.WriteString("\n\ndisconnected")
	}
	return b.String()
}
