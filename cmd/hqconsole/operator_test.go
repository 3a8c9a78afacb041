package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/confirm"
	"hqconsole/pkg/console"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
	"hqconsole/pkg/views"
)

type memoryStatus struct {
	*transport.MemorySession
}

func (memoryStatus) GetMetrics() map[string]uint64 {
	return map[string]uint64{"connects": 1}
}

type opFixture struct {
	session *transport.MemorySession
	policy  *confirm.Policy
	op      *operator
}

func newOpFixture(t *testing.T, mode confirm.Mode) *opFixture {
	t.Helper()
	log := logger.NewNop()

	loop := console.NewLoop(log)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})

	schemas, err := schema.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	session := transport.NewMemorySession()
	registry := stream.NewRegistry(log, session)
	demux := stream.NewDemux(log, registry, schemas)
	policy := confirm.NewPolicy(confirm.Config{Mode: mode})
	host := console.NewHost(log, registry, bus.NewLocalBus(log), command.NewChannel(log, session), policy)
	console.Wire(session, loop, host, stream.NewReceiver(log, registry, demux), demux)

	op := newOperator(log, loop, host, memoryStatus{session})
	if err := op.Mount(context.Background(), views.DashboardProps{Agent: "agent-1", AgentID: "agent", Node: "hub-1"}); err != nil {
		t.Fatal(err)
	}
	return &opFixture{session: session, policy: policy, op: op}
}

// push delivers a frame and waits for the loop to apply it.
func (f *opFixture) push(t *testing.T, key protocol.Key, payload string) {
	t.Helper()
	f.session.Push(protocol.PushFrame(key, []byte(payload)))
	if _, err := f.op.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func (f *opFixture) exec(t *testing.T, line string) string {
	t.Helper()
	out, err := f.op.Exec(context.Background(), line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestOperatorCommands(t *testing.T) {
	f := newOpFixture(t, confirm.ModeAuto)
	f.session.Connect()

	f.push(t, protocol.NewKey("hub-1", "gates", "list"), `[{"ckey":"g1","name":"ingest","state":"active","replayable":true}]`)
	f.push(t, protocol.NewKey("agent-1", "agents", "list"), `[{"id":"ds1","state":"passive"}]`)

	if out := f.exec(t, "show"); !strings.Contains(out, "ingest") {
		t.Fatalf("expected gate in dashboard:\n%s", out)
	}

	if out := f.exec(t, "replay g1"); out != "sent replay to g1" {
		t.Fatalf("unexpected output %q", out)
	}
	if out := f.exec(t, "toggle ds1"); out != "sent start to ds1" {
		t.Fatalf("unexpected output %q", out)
	}
	f.exec(t, `send hub-1 g1 start {"force": true}`)

	sent := f.session.SentOfType(protocol.FrameCommand)
	if len(sent) != 3 {
		t.Fatalf("expected 3 commands, got %v", sent)
	}
	if sent[2].Command != "start" || string(sent[2].Payload) != `{"force":true}` {
		t.Fatalf("unexpected raw command %+v", sent[2])
	}

	f.exec(t, "section agents")
	if out := f.exec(t, "show"); !strings.Contains(out, "[agents]") {
		t.Fatalf("expected agents section:\n%s", out)
	}

	f.exec(t, "node hub-2")
	subs := f.session.SentOfType(protocol.FrameSubscribe)
	if last := subs[len(subs)-1]; last.Key() != protocol.NewKey("hub-2", "gates", "list") {
		t.Fatalf("expected subscription to hub-2, got %v", last.Key())
	}

	if out := f.exec(t, "status"); !strings.HasPrefix(out, "connected") || !strings.Contains(out, "connects: 1") {
		t.Fatalf("unexpected status %q", out)
	}
}

func TestOperatorErrors(t *testing.T) {
	f := newOpFixture(t, confirm.ModeDeny)
	f.session.Connect()

	if _, err := f.op.Exec(context.Background(), "bogus"); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if _, err := f.op.Exec(context.Background(), "toggle ds9"); err == nil {
		t.Fatal("expected error for unknown datasource")
	}
	if _, err := f.op.Exec(context.Background(), "send hub-1 g1 start {bad"); err == nil {
		t.Fatal("expected error for invalid payload")
	}

	_, err := f.op.Exec(context.Background(), "send hub-1 g1 kill")
	if !errors.Is(err, console.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if n := len(f.session.SentOfType(protocol.FrameCommand)); n != 0 {
		t.Fatalf("expected nothing sent, got %d", n)
	}
}

func TestOperatorTwoPressConfirmation(t *testing.T) {
	f := newOpFixture(t, confirm.ModePrompt)
	f.session.Connect()

	var notices []string
	prompt := &twoPress{notify: func(msg string) { notices = append(notices, msg) }}
	f.policy.SetPrompt(prompt.Prompt)

	if _, err := f.op.Exec(context.Background(), "send hub-1 g1 kill"); !errors.Is(err, console.ErrNotConfirmed) {
		t.Fatalf("expected first press to be refused, got %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected one notice, got %v", notices)
	}
	f.exec(t, "send hub-1 g1 kill")

	if n := len(f.session.SentOfType(protocol.FrameCommand)); n != 1 {
		t.Fatalf("expected exactly one kill, got %d", n)
	}
}

func TestTwoPressRearmsOnDifferentTarget(t *testing.T) {
	p := &twoPress{}
	kill := protocol.Envelope{Address: "hub-1", Route: "g1", Command: "kill"}
	other := protocol.Envelope{Address: "hub-1", Route: "g2", Command: "kill"}

	if ok, _ := p.Prompt(kill); ok {
		t.Fatal("expected first press refused")
	}
	if ok, _ := p.Prompt(other); ok {
		t.Fatal("expected a different target to re-arm")
	}
	if ok, _ := p.Prompt(other); !ok {
		t.Fatal("expected second press on the same target to confirm")
	}

	p.Prompt(kill)
	p.Disarm()
	if ok, _ := p.Prompt(kill); ok {
		t.Fatal("expected disarm to forget the pending confirmation")
	}
}
