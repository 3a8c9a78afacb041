package transport

import (
	"errors"
	"testing"

	"hqconsole/pkg/protocol"
)

func TestMemorySessionSend(t *testing.T) {
	m := NewMemorySession()
	key := protocol.NewKey("a1", "agents", "list")

	if err := m.Send(protocol.SubscribeFrame(key)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	m.Connect()
	if err := m.Send(protocol.SubscribeFrame(key)); err != nil {
		t.Fatal(err)
	}
	if n := len(m.SentOfType(protocol.FrameSubscribe)); n != 1 {
		t.Fatalf("expected 1 subscribe frame, got %d", n)
	}

	boom := errors.New("boom")
	m.FailSends(boom)
	if err := m.Send(protocol.UnsubscribeFrame(key)); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	m.FailSends(nil)

	m.Reset()
	if len(m.Sent()) != 0 {
		t.Fatal("expected Reset to clear sent frames")
	}
}

func TestListenersFanOutInOrder(t *testing.T) {
	var calls []string
	record := func(name string) Listener {
		return ListenerFuncs{
			Connect:    func() { calls = append(calls, name+":connect") },
			Disconnect: func(error) { calls = append(calls, name+":disconnect") },
			Frame:      func(protocol.Frame) { calls = append(calls, name+":frame") },
		}
	}

	m := NewMemorySession()
	m.Listen(Listeners{record("a"), record("b"), ListenerFuncs{}})

	m.Connect()
	m.Push(protocol.PushFrame(protocol.NewKey("a1", "r", "t"), []byte(`1`)))
	m.Disconnect(nil)

	want := []string{"a:connect", "b:connect", "a:frame", "b:frame", "a:disconnect", "b:disconnect"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrNotConnected, true},
		{ErrQueueFull, true},
		{errors.New("marshal failed"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
