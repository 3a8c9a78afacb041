package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
)

// ChangeHandler is called when configuration changes.
type ChangeHandler func(*Config) error

// Watcher monitors the configuration file for changes and triggers reload.
type Watcher struct {
	loader   *Loader
	config   *Config
	log      *logger.Logger
	handlers []ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(loader *Loader, config *Config, log *logger.Logger) *Watcher {
	return &Watcher{
		loader:   loader,
		config:   config,
		log:      log,
		handlers: make([]ChangeHandler, 0),
	}
}

// AddHandler registers a handler to be called when configuration changes.
func (w *Watcher) AddHandler(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching the configuration file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.watching = true
	w.mu.Unlock()

	path := w.loader.GetConfigPath()

	w.loader.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		w.reload(path)
	})
	w.loader.viper.WatchConfig()

	return nil
}

// Stop stops delivering changes. Viper keeps its watch goroutine until exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = false
}

// GetConfig returns the current configuration (thread-safe).
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) reload(path string) {
	w.mu.RLock()
	watching := w.watching
	w.mu.RUnlock()
	if !watching {
		return
	}

	newConfig, err := w.loader.Load(path)
	if err != nil {
		w.log.Warn("Config reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := ValidateConfig(newConfig); err != nil {
		w.log.Warn("Reloaded config is invalid, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.config = newConfig
	w.mu.Unlock()

	w.notifyHandlers(newConfig)
}

func (w *Watcher) notifyHandlers(config *Config) {
	w.mu.RLock()
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(config); err != nil {
			w.log.Warn("Config change handler failed", zap.Error(err))
		}
	}
}

// LevelReloader returns a handler applying the logger level of a reloaded config.
func LevelReloader(log *logger.Logger) ChangeHandler {
	return func(cfg *Config) error {
		section := cfg.LoggerSection()
		if section.Level == "" {
			return nil
		}
		if err := log.SetLevel(logger.Level(section.Level)); err != nil {
			return fmt.Errorf("applying logger level: %w", err)
		}
		log.Info("Logger level reloaded", zap.String("level", section.Level))
		return nil
	}
}
