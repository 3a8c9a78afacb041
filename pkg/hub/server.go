// Package hub is a development server that speaks the console's wire protocol.
// It tracks what each connected console subscribed to, fans pushes out to the
// subscribers of their exact key, and records the commands it receives. Upstream
// data comes from Push calls, a Redis pub/sub source or the demo feeder.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/version"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// CommandRecord is a command received from a console.
type CommandRecord struct {
	ClientID   string           `json:"client_id"`
	Address    protocol.Address `json:"address"`
	Route      protocol.Route   `json:"route"`
	Command    string           `json:"command"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
	ReceivedAt time.Time        `json:"received_at"`
}

// CommandHandler reacts to a received command.
type CommandHandler func(rec CommandRecord)

// Client is a connected console.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	subs map[protocol.Key]struct{}
}

// Options configures a Server.
type Options struct {
	Host string
	Port int
	// Retain replays the last payload of a key to every new subscriber.
	Retain bool
}

// Server is the WebSocket/REST hub.
type Server struct {
	opts   Options
	logger *logger.Logger
	mux    *http.ServeMux
	server *http.Server
	addr   string

	mu       sync.RWMutex
	clients  map[string]*Client
	retained map[protocol.Key]json.RawMessage
	commands []CommandRecord
	handlers []CommandHandler

	// Metrics
	pushes      uint64
	delivered   uint64
	metricsLock sync.Mutex
}

// NewServer creates a hub server.
func NewServer(log *logger.Logger, opts Options) *Server {
	s := &Server{
		opts:     opts,
		logger:   log,
		clients:  make(map[string]*Client),
		retained: make(map[protocol.Key]json.RawMessage),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWS)

	// REST endpoints
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/connections", s.handleConnections)
	mux.HandleFunc("GET /api/v1/commands", s.handleCommands)
	mux.HandleFunc("POST /api/v1/push", s.handlePush)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.mux = mux
}

// Handler returns the HTTP handler of the hub.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()

	s.logger.Info("Hub server starting", zap.String("addr", s.addr))

	s.server = &http.Server{
		Handler: s.mux,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Hub server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	return s.addr
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Hub server stopping")

	s.mu.Lock()
	for id, client := range s.clients {
		close(client.send)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// OnCommand registers a handler for received commands.
func (s *Server) OnCommand(fn CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Push sends payload to every client subscribed to key and returns how many
// clients it was queued for.
func (s *Server) Push(key protocol.Key, payload json.RawMessage) int {
	data, err := protocol.Encode(protocol.PushFrame(key, payload))
	if err != nil {
		s.logger.Warn("Failed to encode push", zap.String("key", key.String()), zap.Error(err))
		return 0
	}

	s.mu.Lock()
	if s.opts.Retain {
		s.retained[key] = payload
	}
	var targets []*Client
	for _, c := range s.clients {
		if _, ok := c.subs[key]; ok {
			targets = append(targets, c)
		}
	}
	n := 0
	for _, c := range targets {
		if s.enqueue(c, data) {
			n++
		}
	}
	s.mu.Unlock()

	s.metricsLock.Lock()
	s.pushes++
	s.delivered += uint64(n)
	s.metricsLock.Unlock()

	return n
}

// PushValue marshals v and pushes it.
func (s *Server) PushValue(key protocol.Key, v any) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshaling push for %s: %w", key, err)
	}
	return s.Push(key, raw), nil
}

// Subscribers returns how many clients are subscribed to key.
func (s *Server) Subscribers(key protocol.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.clients {
		if _, ok := c.subs[key]; ok {
			n++
		}
	}
	return n
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Commands returns every command received so far.
func (s *Server) Commands() []CommandRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CommandRecord(nil), s.commands...)
}

// Disconnect drops every client connection, as a hub restart would.
func (s *Server) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, client := range s.clients {
		client.conn.Close()
		close(client.send)
		delete(s.clients, id)
	}
}

// GetMetrics returns current hub metrics.
func (s *Server) GetMetrics() map[string]uint64 {
	s.metricsLock.Lock()
	defer s.metricsLock.Unlock()

	return map[string]uint64{
		"pushes":    s.pushes,
		"delivered": s.delivered,
	}
}

// --- WebSocket Handler ---

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[protocol.Key]struct{}),
	}

	s.mu.Lock()
	s.clients[client.id] = client
	s.mu.Unlock()

	s.logger.Info("Console connected",
		zap.String("client_id", client.id),
		zap.String("remote", r.RemoteAddr),
	)

	go s.readPump(client)
	go s.writePump(client)
}

func (s *Server) readPump(client *Client) {
	defer func() {
		s.removeClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(1 << 20)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error",
					zap.String("client_id", client.id),
					zap.Error(err),
				)
			}
			return
		}
		// Any traffic proves the console is alive.
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		f, err := protocol.Decode(message)
		if err != nil {
			s.logger.Warn("Invalid frame", zap.String("client_id", client.id), zap.Error(err))
			continue
		}
		s.handleFrame(client, f)
	}
}

func (s *Server) handleFrame(client *Client, f protocol.Frame) {
	switch f.Type {
	case protocol.FrameSubscribe:
		key := f.Key()
		s.mu.Lock()
		client.subs[key] = struct{}{}
		retained, ok := s.retained[key]
		if ok {
			if data, err := protocol.Encode(protocol.PushFrame(key, retained)); err == nil {
				s.enqueue(client, data)
			}
		}
		s.mu.Unlock()
		s.logger.Debug("Subscribed", zap.String("client_id", client.id), zap.String("key", key.String()))

	case protocol.FrameUnsubscribe:
		s.mu.Lock()
		delete(client.subs, f.Key())
		s.mu.Unlock()
		s.logger.Debug("Unsubscribed", zap.String("client_id", client.id), zap.String("key", f.Key().String()))

	case protocol.FrameCommand:
		rec := CommandRecord{
			ClientID:   client.id,
			Address:    f.Address,
			Route:      f.Route,
			Command:    f.Command,
			Payload:    f.Payload,
			ReceivedAt: time.Now(),
		}
		s.mu.Lock()
		s.commands = append(s.commands, rec)
		handlers := append([]CommandHandler(nil), s.handlers...)
		s.mu.Unlock()

		s.logger.Info("Command received",
			zap.String("client_id", client.id),
			zap.String("command", rec.Command),
			zap.String("address", string(rec.Address)),
			zap.String("route", string(rec.Route)),
		)
		for _, h := range handlers {
			h(rec)
		}

	default:
		s.logger.Debug("Ignoring frame", zap.String("type", string(f.Type)))
	}
}

func (s *Server) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues data for client. Caller must hold s.mu.
func (s *Server) enqueue(client *Client, data []byte) bool {
	if _, ok := s.clients[client.id]; !ok {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		s.logger.Warn("Client send buffer full, dropping push", zap.String("client_id", client.id))
		return false
	}
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client.id]; ok {
		close(client.send)
		delete(s.clients, client.id)
		s.logger.Info("Console disconnected",
			zap.String("client_id", client.id),
		)
	}
}

// --- REST Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	connCount := len(s.clients)
	keys := make(map[protocol.Key]struct{})
	for _, c := range s.clients {
		for k := range c.subs {
			keys[k] = struct{}{}
		}
	}
	commandCount := len(s.commands)
	s.mu.RUnlock()

	status := map[string]interface{}{
		"version":       version.Get(),
		"connections":   connCount,
		"subscriptions": len(keys),
		"commands":      commandCount,
		"metrics":       s.GetMetrics(),
		"hub": map[string]interface{}{
			"host": s.opts.Host,
			"port": s.opts.Port,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		subs := make([]string, 0, len(client.subs))
		for k := range client.subs {
			subs = append(subs, k.String())
		}
		conns = append(conns, map[string]interface{}{
			"id":            client.id,
			"subscriptions": subs,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conns)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Commands())
}

type pushRequest struct {
	Address protocol.Address `json:"address"`
	Route   protocol.Route   `json:"route"`
	Topic   protocol.Topic   `json:"topic"`
	Payload json.RawMessage  `json:"payload"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid push"}`, http.StatusBadRequest)
		return
	}
	if req.Address == "" || req.Topic == "" {
		http.Error(w, `{"error":"address and topic are required"}`, http.StatusBadRequest)
		return
	}

	n := s.Push(protocol.NewKey(req.Address, req.Route, req.Topic), req.Payload)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"delivered": n})
}
