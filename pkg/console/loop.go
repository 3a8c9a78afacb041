package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hqconsole/pkg/logger"
	"hqconsole/pkg/protocol"
	"hqconsole/pkg/transport"
)

// ErrLoopStopped is returned when posting to a stopped loop.
var ErrLoopStopped = errors.New("console loop stopped")

// Loop is the single logical thread of the console. Session callbacks and UI
// actions are posted as tasks and run one at a time in the order they were posted.
// The queue is unbounded, so a task may post further tasks without deadlocking.
type Loop struct {
	log *logger.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
	running bool
}

// NewLoop creates a loop. Tasks posted before Run are kept until it starts.
func NewLoop(log *logger.Logger) *Loop {
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Call posts fn and waits for it to finish. It must not be used from a task.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Run executes tasks until ctx is done or Stop is called. Remaining tasks are dropped.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	defer close(l.done)

	for {
		task, ok := l.next()
		if ok {
			l.run(task)
			continue
		}

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.wake:
		}
	}
}

// Stop rejects further posts. Run returns once the wake-up is seen.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Console task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Listener wraps inner so every notification runs on the loop.
func (l *Loop) Listener(inner transport.Listener) transport.Listener {
	return transport.ListenerFuncs{
		Connect: func() {
			l.post(inner.OnConnect)
		},
		Disconnect: func(err error) {
			l.post(func() { inner.OnDisconnect(err) })
		},
		Frame: func(f protocol.Frame) {
			l.post(func() { inner.OnFrame(f) })
		},
	}
}

func (l *Loop) post(fn func()) {
	if err := l.Post(fn); err != nil {
		l.log.Debug("Dropping session event", zap.Error(err))
	}
}
