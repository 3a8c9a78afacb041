package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
)

// Options configures a WebSocketSession.
type Options struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	// PingInterval of zero disables keepalive pings.
	PingInterval time.Duration
	WriteQueue   int
	ReadLimit    int64
}

func (o *Options) withDefaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReconnectMin <= 0 {
		o.ReconnectMin = 500 * time.Millisecond
	}
	if o.ReconnectMax < o.ReconnectMin {
		o.ReconnectMax = o.ReconnectMin
	}
	if o.WriteQueue <= 0 {
		o.WriteQueue = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
}

const (
	writeWait  = 10 * time.Second
	closeGrace = 2 * time.Second
)

// WebSocketSession keeps one WebSocket connection to the hub alive, reconnecting with
// exponential backoff. Its write goroutine is the only writer to the connection.
type WebSocketSession struct {
	log    *logger.Logger
	opts   Options
	dialer *websocket.Dialer

	mu        sync.Mutex
	listener  Listener
	conn      *websocket.Conn
	send      chan []byte
	connected bool
	running   bool

	cancel context.CancelFunc
	done   chan struct{}

	// Metrics
	connects    uint64
	framesIn    uint64
	framesOut   uint64
	metricsLock sync.Mutex
}

// NewWebSocketSession creates a session. Nothing is dialed until Start.
func NewWebSocketSession(log *logger.Logger, opts Options) (*WebSocketSession, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("transport url is required")
	}
	opts.withDefaults()

	return &WebSocketSession{
		log:  log,
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}, nil
}

// Listen implements Session.
func (s *WebSocketSession) Listen(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start launches the connect loop. It returns immediately; the first dial happens
// in the background and failures are retried.
func (s *WebSocketSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("session already started")
	}
	if s.listener == nil {
		return fmt.Errorf("session has no listener")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.log.Info("Starting transport session", zap.String("url", s.opts.URL))

	go s.run(runCtx)
	return nil
}

// Stop flushes queued frames, closes the connection and waits for the connect
// loop to exit.
func (s *WebSocketSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	if s.send != nil {
		// Let the writer flush queued frames and send a close frame; the reader
		// ends on the hub's close reply or when the grace period runs out.
		conn := s.conn
		close(s.send)
		s.send = nil
		s.connected = false
		time.AfterFunc(closeGrace, func() { conn.Close() })
	} else if s.conn != nil {
		s.conn.Close()
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		s.log.Info("Transport session stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping transport session: %w", ctx.Err())
	}
}

// Send enqueues one frame for the write goroutine. It never blocks.
func (s *WebSocketSession) Send(f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Connected reports whether a connection is currently live.
func (s *WebSocketSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// GetMetrics returns current session metrics.
func (s *WebSocketSession) GetMetrics() map[string]uint64 {
	s.metricsLock.Lock()
	defer s.metricsLock.Unlock()

	return map[string]uint64{
		"connects":   s.connects,
		"frames_in":  s.framesIn,
		"frames_out": s.framesOut,
	}
}

func (s *WebSocketSession) run(ctx context.Context) {
	defer close(s.done)

	delay := s.opts.ReconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.log.Warn("Transport dial failed",
				zap.String("url", s.opts.URL),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay, s.opts.ReconnectMax)
			continue
		}

		delay = s.opts.ReconnectMin
		err = s.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}

		s.log.Warn("Transport connection lost, reconnecting",
			zap.Duration("retry_in", delay),
			zap.Error(err))
		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextDelay(delay, s.opts.ReconnectMax)
	}
}

func (s *WebSocketSession) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.opts.URL, s.opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dialing hub: %w", err)
	}
	return conn, nil
}

// serve runs one connection until it fails. The listener is notified of the connect
// before any inbound frame and of the disconnect after the last one.
func (s *WebSocketSession) serve(ctx context.Context, conn *websocket.Conn) error {
	send := make(chan []byte, s.opts.WriteQueue)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		conn.Close()
		return ctx.Err()
	}
	s.conn = conn
	s.send = send
	s.connected = true
	listener := s.listener
	s.mu.Unlock()

	s.count(&s.connects)
	s.log.Info("Transport connected", zap.String("url", s.opts.URL))

	listener.OnConnect()

	writerDone := make(chan struct{})
	go s.writePump(conn, send, writerDone)

	err := s.readPump(conn, listener)

	s.mu.Lock()
	s.connected = false
	s.conn = nil
	if s.send == send {
		s.send = nil
		close(send)
	}
	s.mu.Unlock()

	<-writerDone
	conn.Close()

	listener.OnDisconnect(err)
	return err
}

func (s *WebSocketSession) readPump(conn *websocket.Conn, listener Listener) error {
	conn.SetReadLimit(s.opts.ReadLimit)
	if s.opts.PingInterval > 0 {
		wait := 2 * s.opts.PingInterval
		conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("hub closed connection: %w", err)
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		f, err := protocol.Decode(data)
		if err != nil {
			s.log.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}
		s.count(&s.framesIn)
		listener.OnFrame(f)
	}
}

func (s *WebSocketSession) writePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)

	var ping <-chan time.Time
	if s.opts.PingInterval > 0 {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn("Transport write failed", zap.Error(err))
				// Unblock the reader so the connection is torn down.
				conn.Close()
				drain(send)
				return
			}
			s.count(&s.framesOut)

		case <-ping:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(send)
				return
			}
		}
	}
}

func (s *WebSocketSession) count(field *uint64) {
	s.metricsLock.Lock()
	*field++
	s.metricsLock.Unlock()
}

func drain(send <-chan []byte) {
	for range send {
	}
}

func nextDelay(d, ceiling time.Duration) time.Duration {
	d *= 2
	if d > ceiling {
		return ceiling
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsTransient reports whether err is a send failure that clears on its own
// (disconnected or back-pressured) rather than a malformed frame.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrQueueFull)
}
