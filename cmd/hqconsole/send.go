package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"hqconsole/pkg/confirm"
	"hqconsole/pkg/console"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

var (
	sendPayload string
	sendYes     bool
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <address> <route> <command>",
	Short: "Send one command to an addressed resource",
	Long: `Connect to the hub, send one command and exit. Commands are sent at most once;
if the hub is not reachable within the timeout nothing is sent.

Destructive commands (kill and replay by default) ask for confirmation on the
terminal unless --yes is given or confirm.mode is auto.

Examples:
  hqconsole send agent-1 ds1 stop
  hqconsole send hub-1 g1 replay --yes
  hqconsole send hub-1 g1 start --payload '{"force":true}'`,
	Args: cobra.ExactArgs(3),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendPayload, "payload", "", "JSON payload (default {})")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip confirmation of destructive commands")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "how long to wait for the hub")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	env := protocol.Envelope{
		Address: protocol.Address(args[0]),
		Route:   protocol.Route(args[1]),
		Command: args[2],
	}
	if sendPayload != "" {
		if !json.Valid([]byte(sendPayload)) {
			return fmt.Errorf("--payload is not valid JSON")
		}
		env.Payload = json.RawMessage(sendPayload)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		loop    *console.Loop
		host    *console.Host
		session transport.Sender
	)
	opts := consoleOptions(true, fx.Populate(&loop, &host, &session))
	if sendYes {
		opts = append(opts, fx.Decorate(func(*confirm.Policy) *confirm.Policy {
			return confirm.NewPolicy(confirm.Config{Mode: confirm.ModeAuto})
		}))
	} else {
		opts = append(opts, fx.Invoke(func(p *confirm.Policy) { p.SetPrompt(terminalPrompt) }))
	}
	app := fx.New(opts...)

	return runApp(ctx, app, func(ctx context.Context) error {
		if err := waitConnected(ctx, session, sendTimeout); err != nil {
			return err
		}

		c := &commander{}
		return loop.Call(ctx, func() error {
			if _, err := host.Mount(c, nil); err != nil {
				return err
			}
			if err := c.ctx.Execute(env); err != nil {
				return err
			}
			fmt.Printf("sent %s to %s/%s\n", env.Command, env.Address, env.Route)
			return nil
		})
	})
}
