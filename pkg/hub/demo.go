package hub

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
)

// Addresses simulated by the demo feeder.
const (
	DemoNode  protocol.Address = "hub-1"
	DemoAgent protocol.Address = "agent-1"
)

// Publisher is the hub side the feeder pushes to and listens on.
type Publisher interface {
	PushValue(key protocol.Key, v any) (int, error)
	OnCommand(fn CommandHandler)
}

// DemoFeeder simulates one hub node with gates and one agent with datasources.
// Each tick pushes fresh lists; start, stop, kill and replay commands change them.
type DemoFeeder struct {
	log       *logger.Logger
	hub       Publisher
	schedule  string
	scheduler *cron.Cron

	mu          sync.Mutex
	gates       map[string]*schema.Gate
	datasources map[string]*schema.Datasource
	ticks       uint64
}

// NewDemoFeeder creates a feeder that pushes on schedule (cron syntax or @every).
func NewDemoFeeder(log *logger.Logger, hub Publisher, schedule string) (*DemoFeeder, error) {
	if schedule == "" {
		schedule = "@every 2s"
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid demo schedule: %w", err)
	}

	f := &DemoFeeder{
		log:       log,
		hub:       hub,
		schedule:  schedule,
		scheduler: cron.New(),
		gates: map[string]*schema.Gate{
			"g1": {CKey: "g1", Name: "ingest", Address: "tcp://0.0.0.0:12345", State: "active", Replayable: true},
			"g2": {CKey: "g2", Name: "audit", Address: "tcp://0.0.0.0:12346", State: "passive"},
		},
		datasources: map[string]*schema.Datasource{
			"ds1": {ID: "ds1", Name: "syslog", Endpoint: "udp://0.0.0.0:514", State: "active"},
			"ds2": {ID: "ds2", Name: "tail", Endpoint: "file:///var/log/app.log", State: "passive"},
		},
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, ds := range f.datasources {
		ds.LastStateChange = now
	}

	hub.OnCommand(f.handleCommand)
	return f, nil
}

// Start schedules the ticks.
func (f *DemoFeeder) Start() error {
	f.log.Info("Starting demo feeder", zap.String("schedule", f.schedule))

	if _, err := f.scheduler.AddFunc(f.schedule, f.Tick); err != nil {
		return fmt.Errorf("scheduling demo feeder: %w", err)
	}
	f.scheduler.Start()
	return nil
}

// Stop stops the scheduler and waits for a running tick.
func (f *DemoFeeder) Stop() error {
	f.log.Info("Stopping demo feeder")

	ctx := f.scheduler.Stop()
	<-ctx.Done()
	return nil
}

// Tick pushes the current state of every simulated stream.
func (f *DemoFeeder) Tick() {
	f.mu.Lock()
	f.ticks++
	for _, ds := range f.datasources {
		if ds.State == "active" {
			ds.CurrentRate = 50 + rand.Float64()*100
		} else {
			ds.CurrentRate = 0
		}
	}
	gates, datasources := f.snapshot()
	f.mu.Unlock()

	f.push(protocol.NewKey(DemoNode, schema.RouteGates, schema.TopicList), gates)
	f.push(protocol.NewKey(DemoAgent, schema.RouteAgents, schema.TopicList), datasources)
	f.push(protocol.NewKey(DemoAgent, "agent", schema.TopicInfo), schema.AgentInfo{Name: "collector", Location: "dc1"})
	for _, g := range gates {
		f.push(protocol.NewKey(DemoNode, protocol.Route(g.CKey), schema.TopicInfo), schema.AgentInfo{Name: g.Name, Location: string(DemoNode)})
	}
}

// Ticks returns how many ticks ran.
func (f *DemoFeeder) Ticks() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

func (f *DemoFeeder) push(key protocol.Key, v any) {
	if _, err := f.hub.PushValue(key, v); err != nil {
		f.log.Warn("Demo push failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// snapshot copies the lists in key order. Caller must hold f.mu.
func (f *DemoFeeder) snapshot() ([]schema.Gate, []schema.Datasource) {
	gates := make([]schema.Gate, 0, len(f.gates))
	for _, g := range f.gates {
		gates = append(gates, *g)
	}
	sort.Slice(gates, func(i, j int) bool { return gates[i].CKey < gates[j].CKey })

	datasources := make([]schema.Datasource, 0, len(f.datasources))
	for _, ds := range f.datasources {
		datasources = append(datasources, *ds)
	}
	sort.Slice(datasources, func(i, j int) bool { return datasources[i].ID < datasources[j].ID })

	return gates, datasources
}

func (f *DemoFeeder) handleCommand(rec CommandRecord) {
	route := string(rec.Route)
	changed := false

	f.mu.Lock()
	switch rec.Address {
	case DemoNode:
		if g, ok := f.gates[route]; ok {
			changed = applyGateCommand(g, rec.Command)
			if rec.Command == "kill" {
				delete(f.gates, route)
				changed = true
			}
		}
	case DemoAgent:
		if ds, ok := f.datasources[route]; ok {
			changed = applyDatasourceCommand(ds, rec.Command)
			if rec.Command == "kill" {
				delete(f.datasources, route)
				changed = true
			}
		}
	}
	f.mu.Unlock()

	if !changed {
		f.log.Debug("Demo feeder ignored command",
			zap.String("command", rec.Command),
			zap.String("address", string(rec.Address)),
			zap.String("route", route))
		return
	}
	f.Tick()
}

func applyGateCommand(g *schema.Gate, command string) bool {
	switch command {
	case "start":
		g.State = "active"
	case "stop":
		g.State = "passive"
	case "replay":
		if !g.Replayable {
			return false
		}
		g.State = "replaying"
	default:
		return false
	}
	return true
}

func applyDatasourceCommand(ds *schema.Datasource, command string) bool {
	switch command {
	case "start":
		ds.State = "active"
	case "stop":
		ds.State = "passive"
	default:
		return false
	}
	ds.LastStateChange = time.Now().UTC().Format(time.RFC3339)
	return true
}
