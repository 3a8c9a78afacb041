package command

import (
	"go.uber.org/fx"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/transport"
)

// Module provides the command channel.
var Module = fx.Module("command",
	fx.Provide(ProvideChannel),
)

// ProvideChannel provides the command channel over the hub session.
func ProvideChannel(log *logger.Logger, sender transport.Sender) *Channel {
	return NewChannel(log.Named("command"), sender)
}
