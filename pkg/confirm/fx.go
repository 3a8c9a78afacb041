package confirm

import (
	"go.uber.org/fx"

	"hqconsole/pkg/config"
)

// Module provides the confirmation policy for fx dependency injection.
var Module = fx.Module("confirm",
	fx.Provide(ProvidePolicy),
)

// ProvidePolicy creates a policy from config.
func ProvidePolicy(cfg *config.Config) *Policy {
	return NewPolicy(Config{
		Mode:        Mode(cfg.Confirm.Mode),
		Destructive: cfg.Confirm.Destructive,
	})
}
