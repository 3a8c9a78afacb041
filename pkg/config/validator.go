package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateTransport(&cfg.Transport)
	v.validateLogger(&cfg.Logger)
	v.validateConfirm(&cfg.Confirm)
	v.validateHub(&cfg.Hub, &cfg.Redis)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) validateTransport(cfg *TransportConfig) {
	if strings.TrimSpace(cfg.URL) == "" {
		v.addError("transport.url", "url is required")
	} else if u, err := url.Parse(cfg.URL); err != nil {
		v.addError("transport.url", fmt.Sprintf("invalid URL: %v", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		v.addError("transport.url", "scheme must be ws or wss")
	}

	if cfg.HandshakeTimeoutMs <= 0 {
		v.addError("transport.handshake_timeout_ms", "handshake_timeout_ms must be positive")
	}
	if cfg.ReconnectMinMs <= 0 {
		v.addError("transport.reconnect_min_ms", "reconnect_min_ms must be positive")
	}
	if cfg.ReconnectMaxMs < cfg.ReconnectMinMs {
		v.addError("transport.reconnect_max_ms", "reconnect_max_ms must not be less than reconnect_min_ms")
	}
	if cfg.WriteQueue < 1 {
		v.addError("transport.write_queue", "write_queue must be at least 1")
	}
	if cfg.PingIntervalS < 0 {
		v.addError("transport.ping_interval_s", "ping_interval_s must be non-negative")
	}
}

func (v *Validator) validateLogger(cfg *LoggerConfig) {
	switch cfg.Level {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		v.addError("logger.level", "level must be one of: debug, info, warn, error, fatal")
	}
	if cfg.MaxSize < 0 {
		v.addError("logger.max_size", "max_size must be non-negative")
	}
}

func (v *Validator) validateConfirm(cfg *ConfirmConfig) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "prompt", "auto", "deny":
	default:
		v.addError("confirm.mode", "mode must be one of: prompt, auto, deny")
	}
	for i, name := range cfg.Destructive {
		if strings.TrimSpace(name) == "" {
			v.addError(fmt.Sprintf("confirm.destructive[%d]", i), "command name is empty")
		}
	}
}

func (v *Validator) validateHub(cfg *HubConfig, redis *RedisConfig) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		v.addError("hub.port", "port must be between 0 and 65535")
	}
	if cfg.RedisSource && strings.TrimSpace(redis.Addr) == "" {
		v.addError("redis.addr", "addr is required when hub.redis_source is enabled")
	}
	if cfg.Demo && strings.TrimSpace(cfg.DemoSchedule) == "" {
		v.addError("hub.demo_schedule", "demo_schedule is required when hub.demo is enabled")
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateConfig is a convenience function to validate configuration.
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.Validate(cfg)
}
