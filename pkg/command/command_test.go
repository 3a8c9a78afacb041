package command

import (
	"encoding/json"
	"errors"
	"testing"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

func TestReplaySentExactlyOnce(t *testing.T) {
	session := transport.NewMemorySession()
	session.Connect()
	ch := NewChannel(logger.NewNop(), session)

	if err := ch.Send("node-1", "g1", Replay, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	sent := session.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(sent))
	}
	f := sent[0]
	if f.Type != protocol.FrameCommand || f.Address != "node-1" || f.Route != "g1" || f.Command != "replay" {
		t.Fatalf("unexpected frame %+v", f)
	}
	if string(f.Payload) != "{}" {
		t.Fatalf("expected empty object payload, got %s", f.Payload)
	}
	if m := ch.GetMetrics(); m["sent_replay"] != 1 {
		t.Errorf("expected sent_replay=1, got %d", m["sent_replay"])
	}
}

func TestSendWhileDisconnectedFailsFast(t *testing.T) {
	session := transport.NewMemorySession()
	ch := NewChannel(logger.NewNop(), session)

	if ch.Available() {
		t.Fatal("expected channel unavailable while disconnected")
	}
	err := ch.Send("node-1", "g1", Stop, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected error to wrap transport.ErrNotConnected")
	}

	// Reconnecting must not flush the failed command.
	session.Connect()
	if len(session.Sent()) != 0 {
		t.Fatalf("expected nothing sent, got %v", session.Sent())
	}
	if m := ch.GetMetrics(); m["failed"] != 1 {
		t.Errorf("expected failed=1, got %d", m["failed"])
	}
}

func TestSendPayload(t *testing.T) {
	session := transport.NewMemorySession()
	session.Connect()
	ch := NewChannel(logger.NewNop(), session)

	if err := ch.Send("a1", "flow-7", Start, map[string]any{"rate": 10}); err != nil {
		t.Fatal(err)
	}
	var payload map[string]float64
	if err := json.Unmarshal(session.Sent()[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["rate"] != 10 {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSendTransportError(t *testing.T) {
	session := transport.NewMemorySession()
	session.Connect()
	session.FailSends(transport.ErrQueueFull)
	ch := NewChannel(logger.NewNop(), session)

	err := ch.Send("a1", "g1", Kill, nil)
	if !errors.Is(err, transport.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestSendInvalidEnvelope(t *testing.T) {
	session := transport.NewMemorySession()
	session.Connect()
	ch := NewChannel(logger.NewNop(), session)

	if err := ch.Send("", "g1", Kill, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
	if len(session.Sent()) != 0 {
		t.Fatal("expected nothing sent")
	}
}
