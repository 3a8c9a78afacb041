package stream

import (
	"go.uber.org/fx"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/schema"
	"hqconsole/pkg/transport"
)

// Module provides the subscription registry, the demultiplexer and the session
// receiver that ties them to the transport.
var Module = fx.Module("stream",
	fx.Provide(
		ProvideSchemas,
		ProvideRegistry,
		ProvideDemux,
		NewReceiverFromGraph,
	),
)

// ProvideSchemas provides the built-in payload schemas.
func ProvideSchemas() (*schema.Registry, error) {
	return schema.Builtin()
}

// ProvideRegistry provides the subscription registry.
func ProvideRegistry(log *logger.Logger, sender transport.Sender) *Registry {
	return NewRegistry(log.Named("stream"), sender)
}

// ProvideDemux provides the demultiplexer.
func ProvideDemux(log *logger.Logger, registry *Registry, schemas *schema.Registry) *Demux {
	return NewDemux(log.Named("demux"), registry, schemas)
}

// NewReceiverFromGraph provides the receiver.
func NewReceiverFromGraph(log *logger.Logger, registry *Registry, demux *Demux) *Receiver {
	return NewReceiver(log.Named("stream"), registry, demux)
}
