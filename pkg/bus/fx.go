package bus

import (
	"context"

	"go.uber.org/fx"

	"hqconsole/pkg/config"
	"hqconsole/pkg/logger"
)

// Module is the fx module for the local event bus.
var Module = fx.Module("bus",
	fx.Provide(NewEventBus),
)

// NewEventBus creates the process-wide event bus. It is created once at application
// start and disposed at shutdown.
func NewEventBus(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) Bus {
	b := NewLocalBus(log.Named("bus"))
	b.LogPublishes(cfg.Events.LogPublishes)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return b.Close()
		},
	})

	return b
}
