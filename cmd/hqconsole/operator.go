package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/views"
)

const operatorHelp = `Commands:
  show                              render the dashboard
  section <gates|flows|agents|notif>
  node <address>                    select the hub node of the gates page
  agent <address> [id]              select the agent of the agents page
  toggle <datasource>               start or stop a datasource
  delete <datasource>               kill a datasource
  replay <gate>                     replay a gate of the selected node
  gate add | gate edit <gate> | gate close
  send <address> <route> <command> [json payload]
  status                            connection state and metrics
  help
  exit`

// sessionStatus is the part of the session the status command reports.
type sessionStatus interface {
	Connected() bool
	GetMetrics() map[string]uint64
}

// commander is a bare component whose context sends raw commands.
type commander struct {
	ctx *console.Context
}

func (c *commander) Subscriptions(any) []stream.Descriptor { return nil }

func (c *commander) Mounted(ctx *console.Context) error {
	c.ctx = ctx
	return nil
}

// operator runs line commands against a mounted dashboard. Every command touches
// components on the console loop only.
type operator struct {
	loop   *console.Loop
	host   *console.Host
	status sessionStatus
	dash   *views.Dashboard
	cmd    *commander
	dashID stream.ComponentID
	props  views.DashboardProps
}

func newOperator(log *logger.Logger, loop *console.Loop, host *console.Host, status sessionStatus) *operator {
	return &operator{
		loop:   loop,
		host:   host,
		status: status,
		dash:   views.NewDashboard(log.Named("views")),
		cmd:    &commander{},
	}
}

// Mount mounts the dashboard with props.
func (o *operator) Mount(ctx context.Context, props views.DashboardProps) error {
	return o.loop.Call(ctx, func() error {
		id, err := o.host.Mount(o.dash, props)
		if err != nil {
			return err
		}
		o.dashID = id
		o.props = props
		_, err = o.host.Mount(o.cmd, nil)
		return err
	})
}

// Render renders the dashboard on the loop.
func (o *operator) Render(ctx context.Context) (string, error) {
	var out string
	err := o.loop.Call(ctx, func() error {
		out = o.dash.Render()
		return nil
	})
	return out, err
}

// Exec runs one command line and returns its output.
func (o *operator) Exec(ctx context.Context, line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}

	var out string
	err := o.loop.Call(ctx, func() error {
		var err error
		out, err = o.exec(args[0], args[1:])
		return err
	})
	if errors.Is(err, console.ErrNotConfirmed) {
		return "", fmt.Errorf("not sent: %w", err)
	}
	return out, err
}

func (o *operator) exec(name string, args []string) (string, error) {
	switch name {
	case "help":
		return operatorHelp, nil

	case "show":
		return o.dash.Render(), nil

	case "section":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: section <name>")
		}
		o.dash.Select(args[0])
		return "", nil

	case "node":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: node <address>")
		}
		return "", o.update(func(p *views.DashboardProps) { p.Node = protocol.Address(args[0]) })

	case "agent":
		if len(args) < 1 || len(args) > 2 {
			return "", fmt.Errorf("usage: agent <address> [id]")
		}
		return "", o.update(func(p *views.DashboardProps) {
			p.Agent = protocol.Address(args[0])
			if len(args) == 2 {
				p.AgentID = protocol.Route(args[1])
			}
		})

	case "toggle":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: toggle <datasource>")
		}
		b, err := o.dash.Datasources.ToggleButton(args[0])
		if err != nil {
			return "", err
		}
		cmd := b.Command()
		if err := b.Click(); err != nil {
			return "", err
		}
		return fmt.Sprintf("sent %s to %s", cmd, args[0]), nil

	case "delete":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: delete <datasource>")
		}
		b, err := o.dash.Datasources.DeleteButton(args[0])
		if err != nil {
			return "", err
		}
		if err := b.Click(); err != nil {
			return "", err
		}
		return fmt.Sprintf("sent kill to %s", args[0]), nil

	case "replay":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: replay <gate>")
		}
		table, ok := o.dash.Gates.Table()
		if !ok {
			return "", fmt.Errorf("no node selected")
		}
		b, err := table.ReplayButton(args[0])
		if err != nil {
			return "", err
		}
		if err := b.Click(); err != nil {
			return "", err
		}
		return fmt.Sprintf("sent replay to %s", args[0]), nil

	case "gate":
		return o.gate(args)

	case "send":
		return o.send(args)

	case "status":
		return o.statusText(), nil

	default:
		return "", fmt.Errorf("unknown command %q (try help)", name)
	}
}

func (o *operator) update(fn func(p *views.DashboardProps)) error {
	props := o.props
	fn(&props)
	if err := o.host.Update(o.dashID, props); err != nil {
		return err
	}
	o.props = props
	return nil
}

func (o *operator) gate(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: gate add | gate edit <gate> | gate close")
	}
	table, ok := o.dash.Gates.Table()
	switch args[0] {
	case "add":
		if !ok {
			return "", fmt.Errorf("no node selected")
		}
		table.Add()
	case "edit":
		if !ok || len(args) != 2 {
			return "", fmt.Errorf("usage: gate edit <gate> with a node selected")
		}
		table.Edit(args[1])
	case "close":
		o.dash.Gates.CloseEditor()
	default:
		return "", fmt.Errorf("unknown gate action %q", args[0])
	}
	return "", nil
}

func (o *operator) send(args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("usage: send <address> <route> <command> [json payload]")
	}
	env := protocol.Envelope{
		Address: protocol.Address(args[0]),
		Route:   protocol.Route(args[1]),
		Command: args[2],
	}
	if len(args) > 3 {
		raw := json.RawMessage(strings.Join(args[3:], " "))
		if !json.Valid(raw) {
			return "", fmt.Errorf("payload is not valid JSON")
		}
		env.Payload = raw
	}
	if err := o.cmd.ctx.Execute(env); err != nil {
		return "", err
	}
	return fmt.Sprintf("sent %s to %s/%s", env.Command, env.Address, env.Route), nil
}

func (o *operator) statusText() string {
	var b strings.Builder
	if o.status.Connected() {
		b.WriteString("connected")
	} else {
		b.WriteString("disconnected")
	}

	metrics := o.status.GetMetrics()
	for _, name := range sortedKeys(metrics) {
		fmt.Fprintf(&b, "\n  %s: %d", name, metrics[name])
	}
	return b.String()
}
