// Package config provides configuration management for hqconsole.
// It uses Viper for configuration loading with support for:
// - Multiple formats (JSON, YAML, TOML)
// - Environment variables (HQCONSOLE_ prefix)
// - Hot-reload of the logger section
// - Default values
package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config represents the complete hqconsole configuration.
type Config struct {
	Transport TransportConfig `mapstructure:"transport" json:"transport"`
	Logger    LoggerConfig    `mapstructure:"logger" json:"logger"`
	Events    EventsConfig    `mapstructure:"events" json:"events"`
	Confirm   ConfirmConfig   `mapstructure:"confirm" json:"confirm"`
	Hub       HubConfig       `mapstructure:"hub" json:"hub"`
	Redis     RedisConfig     `mapstructure:"redis" json:"redis"`
	mu        sync.RWMutex
}

// TransportConfig configures the WebSocket session to the hub.
type TransportConfig struct {
	URL string `mapstructure:"url" json:"url"`
	// HandshakeTimeoutMs bounds the WebSocket dial.
	HandshakeTimeoutMs int `mapstructure:"handshake_timeout_ms" json:"handshake_timeout_ms"`
	// ReconnectMinMs and ReconnectMaxMs bound the exponential reconnect backoff.
	ReconnectMinMs int `mapstructure:"reconnect_min_ms" json:"reconnect_min_ms"`
	ReconnectMaxMs int `mapstructure:"reconnect_max_ms" json:"reconnect_max_ms"`
	PingIntervalS  int `mapstructure:"ping_interval_s" json:"ping_interval_s"`
	// WriteQueue is the outbound frame buffer; sends fail fast when it is full.
	WriteQueue int `mapstructure:"write_queue" json:"write_queue"`
	ReadLimit  int `mapstructure:"read_limit" json:"read_limit"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// EventsConfig configures the local event bus.
type EventsConfig struct {
	// LogPublishes logs every published event at debug level.
	LogPublishes bool `mapstructure:"log_publishes" json:"log_publishes"`
}

// ConfirmConfig configures confirmation of destructive commands.
type ConfirmConfig struct {
	Mode        string   `mapstructure:"mode" json:"mode"` // "prompt", "auto", "deny"
	Destructive []string `mapstructure:"destructive" json:"destructive"`
}

// HubConfig configures the development hub server.
type HubConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
	// RedisSource relays Redis pub/sub pushes to connected consoles.
	RedisSource bool   `mapstructure:"redis_source" json:"redis_source"`
	RedisPrefix string `mapstructure:"redis_prefix" json:"redis_prefix"`
	// Demo enables the scheduled synthetic feeder.
	Demo         bool   `mapstructure:"demo" json:"demo"`
	DemoSchedule string `mapstructure:"demo_schedule" json:"demo_schedule"`
}

// RedisConfig is the shared Redis connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Transport: TransportConfig{
			URL:                "ws://127.0.0.1:18800/ws",
			HandshakeTimeoutMs: 10000,
			ReconnectMinMs:     500,
			ReconnectMaxMs:     15000,
			PingIntervalS:      30,
			WriteQueue:         256,
			ReadLimit:          1 << 20,
		},
		Logger: LoggerConfig{
			Level:      "info",
			OutputPath: filepath.Join(homeDir, ".hqconsole", "logs", "hqconsole.log"),
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Confirm: ConfirmConfig{
			Mode:        "prompt",
			Destructive: []string{"kill", "replay"},
		},
		Hub: HubConfig{
			Host:         "127.0.0.1",
			Port:         18800,
			RedisPrefix:  "hq:push:",
			DemoSchedule: "@every 2s",
		},
	}
}

// HandshakeTimeout returns the dial timeout.
func (t TransportConfig) HandshakeTimeout() time.Duration {
	return time.Duration(t.HandshakeTimeoutMs) * time.Millisecond
}

// ReconnectMin returns the initial reconnect delay.
func (t TransportConfig) ReconnectMin() time.Duration {
	return time.Duration(t.ReconnectMinMs) * time.Millisecond
}

// ReconnectMax returns the reconnect delay ceiling.
func (t TransportConfig) ReconnectMax() time.Duration {
	return time.Duration(t.ReconnectMaxMs) * time.Millisecond
}

// PingInterval returns the keepalive interval.
func (t TransportConfig) PingInterval() time.Duration {
	return time.Duration(t.PingIntervalS) * time.Second
}

// LoggerSection returns a copy of the logger section (thread-safe).
func (c *Config) LoggerSection() LoggerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Logger
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
