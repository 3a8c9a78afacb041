package transport

import (
	"context"

	"go.uber.org/fx"

	"hqconsole/pkg/config"
	"hqconsole/pkg/logger"
)

// Module provides the process-wide hub session. The session starts after every
// constructor has run, so a listener must be attached during graph construction.
var Module = fx.Module("transport",
	fx.Provide(
		ProvideWebSocketSession,
		func(s *WebSocketSession) Session { return s },
		func(s *WebSocketSession) Sender { return s },
	),
)

// ProvideWebSocketSession builds the session from the transport config section.
func ProvideWebSocketSession(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (*WebSocketSession, error) {
	session, err := NewWebSocketSession(log.Named("transport"), OptionsFromConfig(cfg.Transport))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return session.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return session.Stop(ctx)
		},
	})

	return session, nil
}

// OptionsFromConfig maps the transport config section onto session options.
func OptionsFromConfig(t config.TransportConfig) Options {
	return Options{
		URL:              t.URL,
		HandshakeTimeout: t.HandshakeTimeout(),
		ReconnectMin:     t.ReconnectMin(),
		ReconnectMax:     t.ReconnectMax(),
		PingInterval:     t.PingInterval(),
		WriteQueue:       t.WriteQueue,
		ReadLimit:        int64(t.ReadLimit),
	}
}
