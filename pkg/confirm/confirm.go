// Package confirm decides whether a destructive command may be sent.
// It supports three modes:
//   - prompt: destructive commands ask the user through a PromptFunc
//   - auto: every command is approved
//   - deny: destructive commands are never sent
//
// Commands not on the destructive list are always approved.
package confirm

import (
	"fmt"
	"slices"
	"sync"

	"hqconsole/pkg/protocol"
)

// Mode defines the confirmation behavior.
type Mode string

const (
	ModePrompt Mode = "prompt" // Ask the user before sending
	ModeAuto   Mode = "auto"   // Approve without asking
	ModeDeny   Mode = "deny"   // Refuse destructive commands
)

// Decision is the outcome of a check.
type Decision string

const (
	Approved Decision = "approved"
	Denied   Decision = "denied"
)

// DefaultDestructive lists the commands that need confirmation by default.
var DefaultDestructive = []string{"kill", "replay"}

// PromptFunc asks the user about env. It returns true to send.
type PromptFunc func(env protocol.Envelope) (bool, error)

// Config configures a Policy.
type Config struct {
	Mode        Mode     `json:"mode"`
	Destructive []string `json:"destructive"`
}

// Policy checks command envelopes against the confirmation mode.
type Policy struct {
	config Config

	mu     sync.RWMutex
	prompt PromptFunc
}

// NewPolicy creates a policy. An empty destructive list uses DefaultDestructive.
func NewPolicy(cfg Config) *Policy {
	if len(cfg.Destructive) == 0 {
		cfg.Destructive = slices.Clone(DefaultDestructive)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePrompt
	}
	return &Policy{config: cfg}
}

// SetPrompt installs the prompt used in prompt mode. Without one, prompt mode denies.
func (p *Policy) SetPrompt(fn PromptFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompt = fn
}

// Mode returns the configured mode.
func (p *Policy) Mode() Mode {
	return p.config.Mode
}

// IsDestructive reports whether command needs confirmation.
func (p *Policy) IsDestructive(command string) bool {
	for _, item := range p.config.Destructive {
		if item == command || item == "*" {
			return true
		}
	}
	return false
}

// Check decides whether env may be sent.
func (p *Policy) Check(env protocol.Envelope) (Decision, error) {
	if !p.IsDestructive(env.Command) {
		return Approved, nil
	}

	switch p.config.Mode {
	case ModeAuto:
		return Approved, nil

	case ModeDeny:
		return Denied, nil

	case ModePrompt:
		p.mu.RLock()
		prompt := p.prompt
		p.mu.RUnlock()
		if prompt == nil {
			return Denied, nil
		}
		ok, err := prompt(env)
		if err != nil {
			return Denied, fmt.Errorf("prompt error: %w", err)
		}
		if ok {
			return Approved, nil
		}
		return Denied, nil

	default:
		return Denied, fmt.Errorf("unknown confirm mode: %s", p.config.Mode)
	}
}
