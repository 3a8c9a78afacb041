package console

import (
	"context"

	"go.uber.org/fx"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/confirm"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
)

// Module provides the component host and the console loop, and attaches both to
// the hub session.
var Module = fx.Module("console",
	fx.Provide(
		ProvideLoop,
		ProvideHost,
	),
	fx.Invoke(Wire),
)

// ProvideLoop provides the console loop and runs it for the application's lifetime.
func ProvideLoop(lc fx.Lifecycle, log *logger.Logger) *Loop {
	loop := NewLoop(log.Named("loop"))
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go loop.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-loop.Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})

	return loop
}

// ProvideHost provides the component host. Components still mounted at shutdown
// are unmounted on the loop.
func ProvideHost(lc fx.Lifecycle, log *logger.Logger, loop *Loop, registry *stream.Registry, events bus.Bus, commands *command.Channel, policy *confirm.Policy) *Host {
	host := NewHost(log.Named("console"), registry, events, commands, policy)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return loop.Call(ctx, func() error {
				host.UnmountAll()
				return nil
			})
		},
	})

	return host
}

// Wire routes session notifications through the loop: the receiver replays
// interest and dispatches pushes, then the host updates connection flags. Slot
// changes re-render their owner.
func Wire(session transport.Session, loop *Loop, host *Host, receiver *stream.Receiver, demux *stream.Demux) {
	demux.OnChange(host.HandleChange)
	session.Listen(loop.Listener(transport.Listeners{receiver, host}))
}
