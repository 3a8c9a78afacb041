package stream

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/schema"
)

// ChangeFunc is called after a slot of a component received a payload.
type ChangeFunc func(id ComponentID, dataKey string)

// DecodeErrorFunc is called for a payload that failed schema validation.
type DecodeErrorFunc func(err *schema.DecodeError)

// Demux routes pushed payloads to the slots bound to their exact routing key.
type Demux struct {
	log      *logger.Logger
	registry *Registry
	schemas  *schema.Registry

	hookMu        sync.RWMutex
	onChange      ChangeFunc
	onDecodeError DecodeErrorFunc

	metricsLock sync.Mutex
	dispatched  uint64
	applied     uint64
	dropped     uint64
	rejected    uint64
}

// NewDemux creates a demultiplexer over registry. A nil schemas registry decodes
// payloads without validation.
func NewDemux(log *logger.Logger, registry *Registry, schemas *schema.Registry) *Demux {
	if schemas == nil {
		schemas = schema.NewRegistry()
	}
	return &Demux{
		log:      log,
		registry: registry,
		schemas:  schemas,
	}
}

// OnChange sets the change hook.
func (d *Demux) OnChange(fn ChangeFunc) {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.onChange = fn
}

// OnDecodeError sets the hook for rejected payloads.
func (d *Demux) OnDecodeError(fn DecodeErrorFunc) {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.onDecodeError = fn
}

// Dispatch applies one payload to every slot bound to (address, route, topic), in
// bind order, and returns how many slots were written. A payload nobody is bound to
// is dropped; one that fails its schema leaves every slot unchanged.
func (d *Demux) Dispatch(address protocol.Address, route protocol.Route, topic protocol.Topic, payload json.RawMessage) int {
	key := protocol.NewKey(address, route, topic)
	d.count(&d.dispatched)

	targets := d.registry.targets(key)
	if len(targets) == 0 {
		d.count(&d.dropped)
		d.log.Debug("Dropping unmatched push", zap.String("key", key.String()))
		return 0
	}

	value, err := d.schemas.Decode(key, payload)
	if err != nil {
		d.count(&d.rejected)
		d.log.Warn("Rejected push payload", zap.String("key", key.String()), zap.Error(err))

		var decodeErr *schema.DecodeError
		if !errors.As(err, &decodeErr) {
			decodeErr = &schema.DecodeError{Key: key, Err: err}
		}
		d.hookMu.RLock()
		hook := d.onDecodeError
		d.hookMu.RUnlock()
		if hook != nil {
			hook(decodeErr)
		}
		return 0
	}

	d.hookMu.RLock()
	onChange := d.onChange
	d.hookMu.RUnlock()

	applied := 0
	for _, t := range targets {
		if !d.registry.apply(key, t, Loaded(value)) {
			continue
		}
		applied++
		d.count(&d.applied)
		if onChange != nil {
			onChange(t.component, t.dataKey)
		}
	}
	return applied
}

// DispatchFrame dispatches a push frame. Other frame types are ignored.
func (d *Demux) DispatchFrame(f protocol.Frame) int {
	if f.Type != protocol.FramePush {
		d.log.Debug("Ignoring non-push frame", zap.String("type", string(f.Type)))
		return 0
	}
	return d.Dispatch(f.Address, f.Route, f.Topic, f.Payload)
}

// GetMetrics returns current dispatch metrics.
func (d *Demux) GetMetrics() map[string]uint64 {
	d.metricsLock.Lock()
	defer d.metricsLock.Unlock()

	return map[string]uint64{
		"dispatched": d.dispatched,
		"applied":    d.applied,
		"dropped":    d.dropped,
		"rejected":   d.rejected,
	}
}

func (d *Demux) count(field *uint64) {
	d.metricsLock.Lock()
	*field++
	d.metricsLock.Unlock()
}
