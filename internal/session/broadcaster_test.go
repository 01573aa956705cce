package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingRecorder struct {
	failures   int
	broadcasts int
}

func (r *countingRecorder) Validation(Kind, Outcome) {}
func (r *countingRecorder) Broadcast(Kind, int) { r.broadcasts++ }
func (r *countingRecorder) ListenerFailure() { r.failures++ }

func TestBroadcasterNotifiesEverySubscriber(t *testing.T) {
	b := NewBroadcaster(zaptest.NewLogger(t), nil)
	first, second := &recordedExpiry{}, &recordedExpiry{}
	b.Subscribe(first.listener)
	b.Subscribe(second.listener)
	b.Subscribe(first.listener)

	n := b.NotifyAll(context.Background(), Expiry{Kind: KindUser, At: time.Now()})

	assert.Equal(t, 3, n)
	assert.Equal(t, 2, first.count())
	assert.Equal(t, 1, second.count())
}

func TestBroadcasterUnsubscribeIsEffective(t *testing.T) {
	b := NewBroadcaster(zaptest.NewLogger(t), nil)
	kept, dropped := &recordedExpiry{}, &recordedExpiry{}
	b.Subscribe(kept.listener)
	unsubscribe := b.Subscribe(dropped.listener)

	unsubscribe()
	unsubscribe()
	require.Equal(t, 1, b.Count())

	b.NotifyAll(context.Background(), Expiry{Kind: KindAdmin})

	assert.Equal(t, 1, kept.count())
	assert.Equal(t, 0, dropped.count())
}

func TestBroadcasterIsolatesFailingListeners(t *testing.T) {
	metrics := &countingRecorder{}
	b := NewBroadcaster(zaptest.NewLogger(t), metrics)
	rec := &recordedExpiry{}

	b.Subscribe(func(context.Context, Expiry) error { return errors.New("logout failed") })
	b.Subscribe(func(context.Context, Expiry) error { panic("listener bug") })
	b.Subscribe(rec.listener)

	require.NotPanics(t, func() {
		b.NotifyAll(context.Background(), Expiry{Kind: KindUser})
	})

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 2, metrics.failures)
	assert.Equal(t, 1, metrics.broadcasts)
}

func TestBroadcasterUnsubscribeDuringNotify(t *testing.T) {
	b := NewBroadcaster(zaptest.NewLogger(t), nil)
	later := &recordedExpiry{}

	var unsubscribeSelf, unsubscribeLater func()
	calls := 0
	unsubscribeSelf = b.Subscribe(func(context.Context, Expiry) error {
		calls++
		unsubscribeSelf()
		unsubscribeLater()
		return nil
	})
	unsubscribeLater = b.Subscribe(later.listener)

	b.NotifyAll(context.Background(), Expiry{Kind: KindUser})

	assert.Equal(t, 1, calls)
	// The snapshot taken before iteration still includes the later listener.
	assert.Equal(t, 1, later.count())
	assert.Equal(t, 0, b.Count())

	b.NotifyAll(context.Background(), Expiry{Kind: KindUser})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, later.count())
}

func TestBroadcasterSubscribeDuringNotify(t *testing.T) {
	b := NewBroadcaster(zaptest.NewLogger(t), nil)
	added := &recordedExpiry{}

	b.Subscribe(func(context.Context, Expiry) error {
		b.Subscribe(added.listener)
		return nil
	})

	b.NotifyAll(context.Background(), Expiry{Kind: KindUser})
	assert.Equal(t, 0, added.count())
	assert.Equal(t, 2, b.Count())
}
