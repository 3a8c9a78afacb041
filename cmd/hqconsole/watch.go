package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
)

var (
	watchFlags  dashboardFlags
	watchRaw    []string
	watchOutput string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print views or raw streams as they change",
	Long: `Mount the dashboard (or raw stream bindings) and print a new rendering every
time it changes. Raw streams are given as address/route/topic; the route may be
empty (address//topic).

Examples:
  hqconsole watch --node hub-1
  hqconsole watch --raw hub-1/gates/list --raw agent-1/agents/list -o yaml`,
	RunE: runWatch,
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().StringArrayVar(&watchRaw, "raw", nil, "raw stream address/route/topic (repeatable)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "text", "raw output format: text, json or yaml")
	rootCmd.AddCommand(watchCmd)
}

// rawWatcher binds raw streams, one slot per key.
type rawWatcher struct {
	ctx   *console.Context
	descs []stream.Descriptor
}

func newRawWatcher(streams []string) (*rawWatcher, error) {
	w := &rawWatcher{}
	for _, arg := range streams {
		key, err := parseStreamKey(arg)
		if err != nil {
			return nil, err
		}
		w.descs = append(w.descs, stream.Subscribe(key.Address, key.Route, key.Topic, key.String()))
	}
	return w, nil
}

func (w *rawWatcher) Subscriptions(any) []stream.Descriptor {
	return w.descs
}

func (w *rawWatcher) Mounted(ctx *console.Context) error {
	w.ctx = ctx
	return nil
}

// Snapshot returns every slot keyed by stream.
func (w *rawWatcher) Snapshot() map[string]stream.Value {
	out := make(map[string]stream.Value, len(w.descs))
	for _, d := range w.descs {
		out[d.DataKey] = w.ctx.Get(d.DataKey)
	}
	return out
}

// slotOutput is one stream in json and yaml output. Data is absent while loading.
type slotOutput struct {
	Loaded bool `json:"loaded" yaml:"loaded"`
	Data   any  `json:"data,omitempty" yaml:"data,omitempty"`
}

func parseStreamKey(arg string) (protocol.Key, error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return protocol.Key{}, fmt.Errorf("invalid stream %q: want address/route/topic", arg)
	}
	return protocol.NewKey(protocol.Address(parts[0]), protocol.Route(parts[1]), protocol.Topic(parts[2])), nil
}

func formatSnapshot(format string, snap map[string]stream.Value) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(slotOutputs(snap), "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "yaml":
		data, err := yaml.Marshal(slotOutputs(snap))
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\n"), nil
	case "text":
		var b strings.Builder
		for _, key := range sortedKeys(snap) {
			v := snap[key]
			if !v.Loaded() {
				fmt.Fprintf(&b, "%s: loading...\n", key)
				continue
			}
			data, err := json.Marshal(v.Data())
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s: %s\n", key, data)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func slotOutputs(snap map[string]stream.Value) map[string]slotOutput {
	out := make(map[string]slotOutput, len(snap))
	for key, v := range snap {
		out[key] = slotOutput{Loaded: v.Loaded(), Data: v.Data()}
	}
	return out
}

// changePrinter writes a rendering only when it differs from the last one.
type changePrinter struct {
	w    io.Writer
	last string
}

func (p *changePrinter) Print(out string) {
	if out == p.last {
		return
	}
	p.last = out
	fmt.Fprintf(p.w, "%s\n---\n", out)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var raw *rawWatcher
	if len(watchRaw) > 0 {
		w, err := newRawWatcher(watchRaw)
		if err != nil {
			return err
		}
		if _, err := formatSnapshot(watchOutput, nil); err != nil {
			return err
		}
		raw = w
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		log     *logger.Logger
		loop    *console.Loop
		host    *console.Host
		session *transport.WebSocketSession
	)
	app := fx.New(consoleOptions(true, fx.Populate(&log, &loop, &host, &session))...)

	return runApp(ctx, app, func(ctx context.Context) error {
		printer := &changePrinter{w: os.Stdout}

		if raw != nil {
			host.OnRender(func(stream.ComponentID, console.Component) {
				if raw.ctx == nil {
					return
				}
				out, err := formatSnapshot(watchOutput, raw.Snapshot())
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					return
				}
				printer.Print(out)
			})
			if err := loop.Call(ctx, func() error {
				_, err := host.Mount(raw, nil)
				return err
			}); err != nil {
				return err
			}
		} else {
			op := newOperator(log, loop, host, session)
			host.OnRender(func(stream.ComponentID, console.Component) {
				printer.Print(op.dash.Render())
			})
			if err := op.Mount(ctx, watchFlags.props()); err != nil {
				return err
			}
		}

		<-ctx.Done()
		return nil
	})
}
