package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
)

func newTestServer(t *testing.T, retain bool) (*Server, *httptest.Server) {
	t.Helper()

	s := NewServer(logger.NewNop(), Options{Host: "127.0.0.1", Retain: retain})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, f protocol.Frame) {
	t.Helper()
	data, err := protocol.Encode(f)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	f, err := protocol.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPushReachesSubscribersOnly(t *testing.T) {
	s, ts := newTestServer(t, false)
	key := protocol.NewKey("a1", "agents", "list")

	subscribed := dial(t, ts)
	other := dial(t, ts)
	waitFor(t, "two clients", func() bool { return s.Clients() == 2 })

	writeFrame(t, subscribed, protocol.SubscribeFrame(key))
	waitFor(t, "subscription", func() bool { return s.Subscribers(key) == 1 })

	if n := s.Push(key, json.RawMessage(`[{"id":"ds1"}]`)); n != 1 {
		t.Fatalf("expected push queued for 1 client, got %d", n)
	}
	f := readFrame(t, subscribed)
	if f.Type != protocol.FramePush || f.Key() != key || string(f.Payload) != `[{"id":"ds1"}]` {
		t.Fatalf("unexpected frame %+v", f)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("expected unsubscribed client to receive nothing")
	}
}

func TestUnsubscribeStopsPushes(t *testing.T) {
	s, ts := newTestServer(t, false)
	key := protocol.NewKey("a1", "g1", "info")

	conn := dial(t, ts)
	writeFrame(t, conn, protocol.SubscribeFrame(key))
	waitFor(t, "subscription", func() bool { return s.Subscribers(key) == 1 })

	writeFrame(t, conn, protocol.UnsubscribeFrame(key))
	waitFor(t, "unsubscription", func() bool { return s.Subscribers(key) == 0 })

	if n := s.Push(key, json.RawMessage(`{}`)); n != 0 {
		t.Fatalf("expected no delivery, got %d", n)
	}
}

func TestRetainedPayloadReplayedOnSubscribe(t *testing.T) {
	s, ts := newTestServer(t, true)
	key := protocol.NewKey("hub-1", "gates", "list")

	s.Push(key, json.RawMessage(`[]`))

	conn := dial(t, ts)
	writeFrame(t, conn, protocol.SubscribeFrame(key))

	f := readFrame(t, conn)
	if f.Key() != key || string(f.Payload) != `[]` {
		t.Fatalf("expected retained payload, got %+v", f)
	}
}

func TestCommandsRecorded(t *testing.T) {
	s, ts := newTestServer(t, false)

	var handled []string
	done := make(chan struct{})
	s.OnCommand(func(rec CommandRecord) {
		handled = append(handled, rec.Command)
		close(done)
	})

	conn := dial(t, ts)
	f, err := protocol.CommandFrame(protocol.Envelope{Address: "node-1", Route: "g1", Command: "replay"})
	if err != nil {
		t.Fatal(err)
	}
	writeFrame(t, conn, f)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler not called")
	}

	cmds := s.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Address != "node-1" || cmds[0].Route != "g1" || cmds[0].Command != "replay" {
		t.Fatalf("unexpected command %+v", cmds[0])
	}
	if string(cmds[0].Payload) != "{}" {
		t.Fatalf("expected empty payload, got %s", cmds[0].Payload)
	}
	if len(handled) != 1 {
		t.Fatalf("expected handler called once, got %v", handled)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(logger.NewNop(), Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(logger.NewNop(), Options{Host: "127.0.0.1", Port: 18800})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)

	if body["connections"] != float64(0) {
		t.Fatalf("expected 0 connections, got %v", body["connections"])
	}
	if _, ok := body["version"].(map[string]interface{}); !ok {
		t.Fatalf("expected version object, got %v", body["version"])
	}
}

func TestPushEndpoint(t *testing.T) {
	s := NewServer(logger.NewNop(), Options{Retain: true})

	body := strings.NewReader(`{"address":"a1","route":"agents","topic":"list","payload":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/push", body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if m := s.GetMetrics(); m["pushes"] != 1 {
		t.Fatalf("expected 1 push, got %d", m["pushes"])
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/v1/push", strings.NewReader(`{"route":"x"}`))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
