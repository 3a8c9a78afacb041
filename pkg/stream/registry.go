package stream

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

type target struct {
	component ComponentID
	dataKey   string
}

type binding struct {
	descs []Descriptor
	state map[string]Value
}

// Registry owns every component's active descriptors and state slots, and the
// wire-level interest derived from them. Interest is reference counted per routing
// key, so a key shared by several bindings is subscribed once and unsubscribed when
// its last binding goes away.
type Registry struct {
	log    *logger.Logger
	sender transport.Sender

	mu       sync.Mutex
	bindings map[ComponentID]*binding
	refs     map[protocol.Key]int
	index    map[protocol.Key][]target
	// pending holds bound keys whose subscribe frame was refused by a full
	// write queue. They are retried by the next Bind, Retry or Resubscribe.
	pending map[protocol.Key]struct{}
}

// NewRegistry creates a registry that registers interest through sender.
func NewRegistry(log *logger.Logger, sender transport.Sender) *Registry {
	return &Registry{
		log:      log,
		sender:   sender,
		bindings: make(map[ComponentID]*binding),
		refs:     make(map[protocol.Key]int),
		index:    make(map[protocol.Key][]target),
		pending:  make(map[protocol.Key]struct{}),
	}
}

// Bind atomically replaces the active descriptor set of a component. Descriptors
// present in both sets are left alone; the rest are unsubscribed or subscribed. A
// dataKey that moves to another stream goes back to Loading. On error nothing changes.
func (r *Registry) Bind(id ComponentID, descs []Descriptor) error {
	if err := validate(descs); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[id]
	if !ok {
		b = &binding{state: make(map[string]Value)}
		r.bindings[id] = b
	}
	r.flushPending()
	r.replace(id, b, descs)
	return nil
}

// UnbindAll drops every descriptor and slot of a component.
func (r *Registry) UnbindAll(id ComponentID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[id]
	if !ok {
		return
	}
	r.replace(id, b, nil)
	delete(r.bindings, id)
}

func (r *Registry) replace(id ComponentID, b *binding, next []Descriptor) {
	var added, removed []Descriptor
	for _, d := range next {
		if !slices.Contains(b.descs, d) {
			added = append(added, d)
		}
	}
	for _, d := range b.descs {
		if !slices.Contains(next, d) {
			removed = append(removed, d)
		}
	}

	// Additions first so a key that stays referenced never drops to zero.
	var subscribe, unsubscribe []protocol.Key
	for _, d := range added {
		key := d.Key()
		r.refs[key]++
		if r.refs[key] == 1 {
			subscribe = append(subscribe, key)
		}
		r.index[key] = append(r.index[key], target{component: id, dataKey: d.DataKey})
	}
	for _, d := range removed {
		key := d.Key()
		r.refs[key]--
		if r.refs[key] <= 0 {
			delete(r.refs, key)
			unsubscribe = append(unsubscribe, key)
		}
		r.dropTarget(key, target{component: id, dataKey: d.DataKey})
	}

	state := make(map[string]Value, len(next))
	for _, d := range next {
		if slices.Contains(added, d) {
			state[d.DataKey] = Loading
			continue
		}
		state[d.DataKey] = b.state[d.DataKey]
	}
	b.descs = slices.Clone(next)
	b.state = state

	for _, key := range unsubscribe {
		if _, ok := r.pending[key]; ok {
			// Never reached the hub.
			delete(r.pending, key)
			continue
		}
		r.send(protocol.UnsubscribeFrame(key))
	}
	for _, key := range subscribe {
		r.subscribe(key)
	}

	if len(added) > 0 || len(removed) > 0 {
		r.log.Debug("Bindings changed",
			zap.String("component", string(id)),
			zap.Int("added", len(added)),
			zap.Int("removed", len(removed)),
			zap.Int("subscribed", len(subscribe)),
			zap.Int("unsubscribed", len(unsubscribe)))
	}
}

func (r *Registry) dropTarget(key protocol.Key, t target) {
	targets := r.index[key]
	for i, existing := range targets {
		if existing == t {
			targets = slices.Delete(slices.Clone(targets), i, i+1)
			break
		}
	}
	if len(targets) == 0 {
		delete(r.index, key)
		return
	}
	r.index[key] = targets
}

// send writes interest while connected. While disconnected only the bookkeeping
// changes; Resubscribe replays it on the next connect.
func (r *Registry) send(f protocol.Frame) error {
	if !r.sender.Connected() {
		return transport.ErrNotConnected
	}
	err := r.sender.Send(f)
	if err != nil && !errors.Is(err, transport.ErrNotConnected) {
		r.log.Warn("Failed to send interest frame",
			zap.String("type", string(f.Type)),
			zap.String("key", f.Key().String()),
			zap.Error(err))
	}
	return err
}

// subscribe sends interest for key and parks it in pending when the session is
// back-pressured. A disconnected session is left to Resubscribe.
func (r *Registry) subscribe(key protocol.Key) bool {
	err := r.send(protocol.SubscribeFrame(key))
	if err == nil {
		delete(r.pending, key)
		return true
	}
	if errors.Is(err, transport.ErrQueueFull) {
		r.pending[key] = struct{}{}
	}
	return false
}

func (r *Registry) flushPending() int {
	if len(r.pending) == 0 || !r.sender.Connected() {
		return 0
	}
	keys := make([]protocol.Key, 0, len(r.pending))
	for key := range r.pending {
		keys = append(keys, key)
	}
	sortKeys(keys)

	sent := 0
	for _, key := range keys {
		if _, bound := r.refs[key]; !bound {
			delete(r.pending, key)
			continue
		}
		if !r.subscribe(key) {
			break
		}
		sent++
	}
	if sent > 0 {
		r.log.Debug("Retried pending subscriptions",
			zap.Int("sent", sent),
			zap.Int("pending", len(r.pending)))
	}
	return sent
}

// Retry resends subscribe frames that a full write queue refused earlier. It
// returns the number sent.
func (r *Registry) Retry() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushPending()
}

// Pending returns the bound keys still waiting for their subscribe frame, sorted.
func (r *Registry) Pending() []protocol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]protocol.Key, 0, len(r.pending))
	for key := range r.pending {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

// Resubscribe sends a subscribe frame for every key currently bound, in key order.
// It is called on every (re)connect and returns the number of frames sent. Keys
// refused by a full queue stay pending for Retry.
func (r *Registry) Resubscribe() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sender.Connected() {
		return 0
	}
	clear(r.pending)
	keys := r.sortedKeys()
	sent := 0
	for _, key := range keys {
		if r.subscribe(key) {
			sent++
		}
	}
	r.log.Info("Resubscribed", zap.Int("keys", len(keys)), zap.Int("pending", len(r.pending)))
	return sent
}

// Keys returns every routing key with at least one binding, sorted.
func (r *Registry) Keys() []protocol.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedKeys()
}

func (r *Registry) sortedKeys() []protocol.Key {
	keys := make([]protocol.Key, 0, len(r.refs))
	for key := range r.refs {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []protocol.Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// Bound returns the active descriptors of a component.
func (r *Registry) Bound(id ComponentID) []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bindings[id]; ok {
		return slices.Clone(b.descs)
	}
	return nil
}

// Value returns the slot of a component. ok is false for an unknown component or dataKey.
func (r *Registry) Value(id ComponentID, dataKey string) (Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, found := r.bindings[id]
	if !found {
		return Loading, false
	}
	v, ok := b.state[dataKey]
	return v, ok
}

// State returns a reader over a component's slots. Unknown dataKeys read as Loading.
func (r *Registry) State(id ComponentID) State {
	return stateFunc(func(dataKey string) Value {
		v, _ := r.Value(id, dataKey)
		return v
	})
}

// Components returns the number of bound components.
func (r *Registry) Components() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

func (r *Registry) targets(key protocol.Key) []target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index[key]
}

// apply writes a payload to a slot that is still bound to key.
func (r *Registry) apply(key protocol.Key, t target, v Value) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[t.component]
	if !ok {
		return false
	}
	for _, d := range b.descs {
		if d.DataKey == t.dataKey && d.Key() == key {
			b.state[t.dataKey] = v
			return true
		}
	}
	return false
}
