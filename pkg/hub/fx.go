package hub

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"hqconsole/pkg/config"
	"hqconsole/pkg/logger"
)

// Module provides the hub server and its optional upstream sources.
var Module = fx.Module("hub",
	fx.Provide(ProvideServer),
	fx.Invoke(registerSources),
)

// ProvideServer creates the hub server and ties it to the application lifecycle.
func ProvideServer(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) *Server {
	s := NewServer(log.Named("hub"), Options{
		Host:   cfg.Hub.Host,
		Port:   cfg.Hub.Port,
		Retain: true,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting hub",
				zap.String("host", cfg.Hub.Host),
				zap.Int("port", cfg.Hub.Port),
			)
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.Stop(shutdownCtx)
		},
	})

	return s
}

func registerSources(lc fx.Lifecycle, s *Server, cfg *config.Config, log *logger.Logger) error {
	if cfg.Hub.RedisSource {
		src, err := NewRedisSource(log.Named("redis"), &RedisSourceConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Hub.RedisPrefix,
		}, s)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return src.Start() },
			OnStop:  func(ctx context.Context) error { return src.Stop() },
		})
	}

	if cfg.Hub.Demo {
		feeder, err := NewDemoFeeder(log.Named("demo"), s, cfg.Hub.DemoSchedule)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return feeder.Start() },
			OnStop:  func(ctx context.Context) error { return feeder.Stop() },
		})
	}

	return nil
}
