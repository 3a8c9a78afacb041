package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/config"
	"hqconsole/pkg/confirm"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
)

// baseOptions are the modules every command loads. Quiet keeps log output off
// the terminal for commands that own it.
func baseOptions(quiet bool) []fx.Option {
	opts := []fx.Option{
		fx.Supply(config.Path(configPath)),
		config.Module,
		logger.Module,
		fx.NopLogger,
	}
	if debugMode || quiet {
		opts = append(opts, fx.Decorate(func(cfg *logger.Config) *logger.Config {
			if debugMode {
				cfg.Level = logger.LevelDebug
			}
			cfg.Quiet = quiet
			return cfg
		}))
	}
	return opts
}

// consoleOptions load the hub session, the stream layer and the component host.
func consoleOptions(quiet bool, extra ...fx.Option) []fx.Option {
	opts := append(baseOptions(quiet),
		bus.Module,
		transport.Module,
		stream.Module,
		command.Module,
		confirm.Module,
		console.Module,
	)
	return append(opts, extra...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runApp starts app, runs body until it returns or ctx ends, then stops app.
func runApp(ctx context.Context, app *fx.App, body func(ctx context.Context) error) error {
	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("starting hqconsole: %w", err)
	}

	bodyErr := body(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && bodyErr == nil {
		return fmt.Errorf("stopping hqconsole: %w", err)
	}
	return bodyErr
}

// waitConnected polls the session until it is connected or timeout passes.
func waitConnected(ctx context.Context, session transport.Sender, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !session.Connected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("hub not reachable: %w", transport.ErrNotConnected)
		case <-ticker.C:
		}
	}
	return nil
}
