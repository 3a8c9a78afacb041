package config

import (
	"context"

	"go.uber.org/fx"

	"hqconsole/pkg/logger"
)

// Path is the config file location handed to the module. Empty means default search.
type Path string

// Module provides configuration for fx dependency injection.
var Module = fx.Module("config",
	fx.Provide(ProvideLoader),
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLoggerConfig),
)

// WatchModule adds hot reload of the logger section.
var WatchModule = fx.Module("config-watch",
	fx.Provide(ProvideWatcher),
	fx.Invoke(func(*Watcher) {}),
)

// ProvideLoader provides a configuration loader.
func ProvideLoader() *Loader {
	return NewLoader()
}

// ProvideConfig provides loaded and validated configuration.
func ProvideConfig(loader *Loader, path Path) (*Config, error) {
	cfg, err := loader.Load(string(path))
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideLoggerConfig exposes the logger section to logger.Module.
func ProvideLoggerConfig(cfg *Config) *logger.Config {
	section := cfg.LoggerSection()
	return section.ToLoggerConfig()
}

// ProvideWatcher provides a configuration watcher with hot-reload.
func ProvideWatcher(loader *Loader, cfg *Config, lc fx.Lifecycle, log *logger.Logger) *Watcher {
	watcher := NewWatcher(loader, cfg, log)
	watcher.AddHandler(LevelReloader(log))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Debug("Starting configuration watcher")
			return watcher.Start()
		},
		OnStop: func(ctx context.Context) error {
			watcher.Stop()
			return nil
		},
	})

	return watcher
}
