package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := startLoop(t)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := loop.Post(func() { got = append(got, i) }); err != nil {
			t.Fatal(err)
		}
	}
	if err := loop.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("expected tasks in post order, got %v", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(got))
	}
}

func TestLoopTaskCanPost(t *testing.T) {
	loop := startLoop(t)

	done := make(chan struct{})
	loop.Post(func() {
		loop.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested task never ran")
	}
}

func TestLoopRecoversPanics(t *testing.T) {
	loop := startLoop(t)

	loop.Post(func() { panic("boom") })
	err := loop.Call(context.Background(), func() error { return errors.New("still running") })
	if err == nil || err.Error() != "still running" {
		t.Fatalf("expected loop to survive a panic, got %v", err)
	}
}

func TestLoopStopRejectsPosts(t *testing.T) {
	loop := NewLoop(logger.NewNop())
	go loop.Run(context.Background())

	loop.Stop()
	<-loop.Done()

	if err := loop.Post(func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("expected ErrLoopStopped, got %v", err)
	}
}

func TestLoopListenerSerializesSessionEvents(t *testing.T) {
	loop := startLoop(t)

	var events []string
	inner := transport.ListenerFuncs{
		Connect:    func() { events = append(events, "connect") },
		Disconnect: func(error) { events = append(events, "disconnect") },
		Frame:      func(f protocol.Frame) { events = append(events, string(f.Topic)) },
	}
	session := transport.NewMemorySession()
	session.Listen(loop.Listener(inner))

	session.Connect()
	session.Push(protocol.PushFrame(protocol.NewKey("a1", "r", "t1"), []byte(`1`)))
	session.Push(protocol.PushFrame(protocol.NewKey("a1", "r", "t2"), []byte(`2`)))
	session.Disconnect(nil)

	if err := loop.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	want := []string{"connect", "t1", "t2", "disconnect"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}
