package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Listener reacts to an expired credential, typically by logging out.
type Listener func(ctx context.Context, ev Expiry) error

type subscription struct {
	id       uuid.UUID
	listener Listener
}

// Broadcaster fans an Expiry out to every subscribed listener.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    []subscription
	logger  *zap.Logger
	metrics Recorder
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger, metrics Recorder) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Broadcaster{logger: logger, metrics: metrics}
}

// Subscribe registers l and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (b *Broadcaster) Subscribe(l Listener) func() {
	id := uuid.New()

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, listener: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Count returns the number of current subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// NotifyAll calls every listener registered at the time of the call. A
// listener that fails or panics is logged and skipped. It returns the number
// of listeners invoked.
func (b *Broadcaster) NotifyAll(ctx context.Context, ev Expiry) int {
	b.mu.RLock()
	snapshot := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range snapshot {
		if err := b.invoke(ctx, s, ev); err != nil {
			b.metrics.ListenerFailure()
			b.logger.Error("expiry listener failed",
				zap.String("subscription", s.id.String()),
				zap.String("kind", ev.Kind.String()),
				zap.Error(err))
		}
	}
	b.metrics.Broadcast(ev.Kind, len(snapshot))
	return len(snapshot)
}

func (b *Broadcaster) invoke(ctx context.Context, s subscription, ev Expiry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return s.listener(ctx, ev)
}
