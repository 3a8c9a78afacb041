package console

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hqconsole/pkg/bus"
	"hqconsole/pkg/command"
	"hqconsole/pkg/confirm"
	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/stream"
	"hqconsole/pkg/transport"
)

// RenderFunc is called whenever a mounted component should re-render.
type RenderFunc func(id stream.ComponentID, c Component)

type instance struct {
	component Component
	ctx       *Context
	phase     Phase
	renders   int
}

// Host owns the lifecycle of mounted components.
type Host struct {
	log      *logger.Logger
	registry *stream.Registry
	events   bus.Bus
	commands *command.Channel
	policy   *confirm.Policy

	mu        sync.Mutex
	instances map[stream.ComponentID]*instance
	order     []stream.ComponentID
	connected bool
	onRender  RenderFunc
}

var _ transport.Listener = (*Host)(nil)

// NewHost creates a host. policy may be nil, in which case commands are sent
// without confirmation.
func NewHost(log *logger.Logger, registry *stream.Registry, events bus.Bus, commands *command.Channel, policy *confirm.Policy) *Host {
	return &Host{
		log:       log,
		registry:  registry,
		events:    events,
		commands:  commands,
		policy:    policy,
		instances: make(map[stream.ComponentID]*instance),
		connected: commands.Available(),
	}
}

// OnRender sets the render hook.
func (h *Host) OnRender(fn RenderFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRender = fn
}

// Mount binds the component's subscriptions, registers its event handlers once and
// makes it Active. On failure everything acquired so far is released.
func (h *Host) Mount(c Component, props any) (stream.ComponentID, error) {
	id := stream.ComponentID(uuid.New().String())

	h.mu.Lock()
	inst := &instance{component: c, phase: Mounting}
	h.instances[id] = inst
	h.mu.Unlock()

	if err := h.registry.Bind(id, c.Subscriptions(props)); err != nil {
		h.forget(id)
		return "", fmt.Errorf("mounting %T: %w", c, err)
	}

	ctx := &Context{
		id:       id,
		state:    h.registry.State(id),
		events:   h.events.Scope(),
		commands: h.commands,
		policy:   h.policy,
		host:     h,
	}
	ctx.connected.Store(h.Connected())

	if m, ok := c.(Mounter); ok {
		if err := m.Mounted(ctx); err != nil {
			for _, child := range ctx.takeChildren() {
				_ = h.Unmount(child)
			}
			ctx.events.Close()
			h.registry.UnbindAll(id)
			h.forget(id)
			return "", fmt.Errorf("mounting %T: %w", c, err)
		}
	}
	if u, ok := c.(Updater); ok {
		u.Updated(props)
	}

	h.mu.Lock()
	ctx.connected.Store(h.connected)
	inst.ctx = ctx
	inst.phase = Active
	h.order = append(h.order, id)
	h.mu.Unlock()

	h.log.Debug("Component mounted", zap.String("id", string(id)), zap.String("type", fmt.Sprintf("%T", c)))
	h.render(id)
	return id, nil
}

// Update re-declares the subscriptions of an Active component. Event handlers are
// not touched.
func (h *Host) Update(id stream.ComponentID, props any) error {
	inst, err := h.active(id, "update")
	if err != nil {
		return err
	}

	if err := h.registry.Bind(id, inst.component.Subscriptions(props)); err != nil {
		return fmt.Errorf("updating %s: %w", id, err)
	}
	if u, ok := inst.component.(Updater); ok {
		u.Updated(props)
	}
	h.render(id)
	return nil
}

// Unmount releases every subscription and event handler of an Active component.
func (h *Host) Unmount(id stream.ComponentID) error {
	inst, err := h.active(id, "unmount")
	if err != nil {
		return err
	}

	h.mu.Lock()
	inst.phase = Unmounting
	h.mu.Unlock()

	children := inst.ctx.takeChildren()
	for i := len(children) - 1; i >= 0; i-- {
		if err := h.Unmount(children[i]); err != nil {
			h.log.Debug("Child already unmounted", zap.String("id", string(children[i])))
		}
	}

	h.registry.UnbindAll(id)
	inst.ctx.events.Close()
	if u, ok := inst.component.(Unmounter); ok {
		u.Unmounted()
	}

	h.forget(id)
	h.log.Debug("Component unmounted", zap.String("id", string(id)))
	return nil
}

// UnmountAll unmounts every Active component, most recent first. Children already
// torn down with their parent are skipped.
func (h *Host) UnmountAll() {
	ids := h.Mounted()
	for i := len(ids) - 1; i >= 0; i-- {
		if h.Phase(ids[i]) != Active {
			continue
		}
		if err := h.Unmount(ids[i]); err != nil {
			h.log.Warn("Failed to unmount component", zap.String("id", string(ids[i])), zap.Error(err))
		}
	}
}

// Phase returns the lifecycle phase of id. Unknown IDs are Unmounted.
func (h *Host) Phase(id stream.ComponentID) Phase {
	h.mu.Lock()
	defer h.mu.Unlock()

	if inst, ok := h.instances[id]; ok {
		return inst.phase
	}
	return Unmounted
}

// Mounted returns Active component IDs in mount order.
func (h *Host) Mounted() []stream.ComponentID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]stream.ComponentID(nil), h.order...)
}

// Component returns the mounted component for id.
func (h *Host) Component(id stream.ComponentID) (Component, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[id]
	if !ok || inst.phase != Active {
		return nil, false
	}
	return inst.component, true
}

// Renders returns how many times id was rendered.
func (h *Host) Renders(id stream.ComponentID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if inst, ok := h.instances[id]; ok {
		return inst.renders
	}
	return 0
}

// Connected reports the last known connection state.
func (h *Host) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// SetConnected updates every mounted component's connection flag and re-renders them.
func (h *Host) SetConnected(connected bool) {
	h.mu.Lock()
	if h.connected == connected {
		h.mu.Unlock()
		return
	}
	h.connected = connected
	ids := append([]stream.ComponentID(nil), h.order...)
	for _, id := range ids {
		h.instances[id].ctx.connected.Store(connected)
	}
	h.mu.Unlock()

	h.log.Info("Connection state changed", zap.Bool("connected", connected))
	for _, id := range ids {
		h.render(id)
	}
}

// HandleChange re-renders the owner of a slot that received a payload.
func (h *Host) HandleChange(id stream.ComponentID, dataKey string) {
	h.render(id)
}

// OnConnect implements transport.Listener.
func (h *Host) OnConnect() {
	h.SetConnected(true)
}

// OnDisconnect implements transport.Listener.
func (h *Host) OnDisconnect(err error) {
	h.SetConnected(false)
}

// OnFrame implements transport.Listener. Frames reach components through the demux.
func (h *Host) OnFrame(protocol.Frame) {}

func (h *Host) render(id stream.ComponentID) {
	h.mu.Lock()
	inst, ok := h.instances[id]
	if !ok || inst.phase != Active {
		h.mu.Unlock()
		return
	}
	inst.renders++
	fn := h.onRender
	c := inst.component
	h.mu.Unlock()

	if fn != nil {
		fn(id, c)
	}
}

func (h *Host) active(id stream.ComponentID, op string) (*instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inst, ok := h.instances[id]
	if !ok {
		return nil, transitionError(id, op, Unmounted)
	}
	if inst.phase != Active {
		return nil, transitionError(id, op, inst.phase)
	}
	return inst, nil
}

func (h *Host) forget(id stream.ComponentID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.instances, id)
	for i, existing := range h.order {
		if existing == id {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
}
