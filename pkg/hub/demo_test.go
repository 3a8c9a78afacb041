package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
)

type recordingHub struct {
	mu      sync.Mutex
	pushes  map[protocol.Key]json.RawMessage
	handler CommandHandler
}

func (r *recordingHub) PushValue(key protocol.Key, v any) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushes == nil {
		r.pushes = make(map[protocol.Key]json.RawMessage)
	}
	r.pushes[key] = raw
	return 1, nil
}

func (r *recordingHub) OnCommand(fn CommandHandler) {
	r.handler = fn
}

func (r *recordingHub) gates(t *testing.T) []schema.Gate {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schema.Gate
	if err := json.Unmarshal(r.pushes[protocol.NewKey(DemoNode, schema.RouteGates, schema.TopicList)], &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDemoFeederTick(t *testing.T) {
	rec := &recordingHub{}
	f, err := NewDemoFeeder(logger.NewNop(), rec, "@every 1s")
	if err != nil {
		t.Fatal(err)
	}

	f.Tick()
	if f.Ticks() != 1 {
		t.Fatalf("expected 1 tick, got %d", f.Ticks())
	}

	gates := rec.gates(t)
	if len(gates) != 2 || gates[0].CKey != "g1" || gates[1].CKey != "g2" {
		t.Fatalf("unexpected gates %+v", gates)
	}

	var ds []schema.Datasource
	if err := json.Unmarshal(rec.pushes[protocol.NewKey(DemoAgent, schema.RouteAgents, schema.TopicList)], &ds); err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 || ds[0].CurrentRate <= 0 || ds[1].CurrentRate != 0 {
		t.Fatalf("expected active datasource with a rate and passive without, got %+v", ds)
	}
}

func TestDemoFeederCommands(t *testing.T) {
	rec := &recordingHub{}
	if _, err := NewDemoFeeder(logger.NewNop(), rec, ""); err != nil {
		t.Fatal(err)
	}
	if rec.handler == nil {
		t.Fatal("expected feeder to register a command handler")
	}

	rec.handler(CommandRecord{Address: DemoNode, Route: "g1", Command: "replay"})
	if g := rec.gates(t); g[0].State != "replaying" {
		t.Fatalf("expected g1 replaying, got %s", g[0].State)
	}

	rec.handler(CommandRecord{Address: DemoNode, Route: "g2", Command: "kill"})
	if g := rec.gates(t); len(g) != 1 || g[0].CKey != "g1" {
		t.Fatalf("expected g2 removed, got %+v", g)
	}
}

func TestDemoFeederRejectsBadSchedule(t *testing.T) {
	if _, err := NewDemoFeeder(logger.NewNop(), &recordingHub{}, "not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
