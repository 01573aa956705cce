package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCountingCoordinator(t *testing.T) (*Coordinator, *countingValidator, *countingValidator) {
	t.Helper()
	ok := ValidatorFunc(func(context.Context) error { return nil })
	user := &countingValidator{next: ok}
	admin := &countingValidator{next: ok}
	c := NewCoordinator(map[Kind]Validator{KindUser: user, KindAdmin: admin}, Options{Logger: zaptest.NewLogger(t)})
	return c, user, admin
}

func TestPollerTickIdleWithoutSubscribers(t *testing.T) {
	c, user, admin := newCountingCoordinator(t)
	p := NewPoller(c, staticKind{kind: KindUser}, time.Hour, zaptest.NewLogger(t))

	assert.Equal(t, KindNone, p.tick(context.Background()))
	assert.Equal(t, int32(0), user.calls.Load())
	assert.Equal(t, int32(0), admin.calls.Load())
}

func TestPollerTickValidatesActiveKind(t *testing.T) {
	c, user, admin := newCountingCoordinator(t)
	c.Subscribe(func(context.Context, Expiry) error { return nil })

	p := NewPoller(c, staticKind{kind: KindAdmin}, time.Hour, zaptest.NewLogger(t))
	assert.Equal(t, KindAdmin, p.tick(context.Background()))
	assert.Equal(t, int32(0), user.calls.Load())
	assert.Equal(t, int32(1), admin.calls.Load())
}

func TestPollerTickSkipsWithoutCredential(t *testing.T) {
	c, user, admin := newCountingCoordinator(t)
	c.Subscribe(func(context.Context, Expiry) error { return nil })

	p := NewPoller(c, staticKind{kind: KindNone}, time.Hour, zaptest.NewLogger(t))
	assert.Equal(t, KindNone, p.tick(context.Background()))
	assert.Equal(t, int32(0), user.calls.Load()+admin.calls.Load())
}

func TestPollerTickStopsAfterLastUnsubscribe(t *testing.T) {
	c, user, _ := newCountingCoordinator(t)
	unsubscribe := c.Subscribe(func(context.Context, Expiry) error { return nil })
	p := NewPoller(c, staticKind{kind: KindUser}, time.Hour, zaptest.NewLogger(t))

	unsubscribe()
	p.tick(context.Background())
	assert.Equal(t, int32(0), user.calls.Load())
}

func TestPollerInitIsIdempotentAndCleanupRearms(t *testing.T) {
	c, _, _ := newCountingCoordinator(t)
	p := NewPoller(c, staticKind{kind: KindUser}, time.Hour, zaptest.NewLogger(t))

	require.False(t, p.Running())
	p.Init(context.Background())
	p.mu.Lock()
	first := p.done
	p.mu.Unlock()

	p.Init(context.Background())
	p.mu.Lock()
	second := p.done
	p.mu.Unlock()
	assert.Equal(t, first, second)
	assert.True(t, p.Running())

	p.Cleanup()
	assert.False(t, p.Running())
	p.Cleanup()

	p.Init(context.Background())
	assert.True(t, p.Running())
	p.Cleanup()
}

func TestPollerRestartsAfterContextEnds(t *testing.T) {
	c, _, _ := newCountingCoordinator(t)
	p := NewPoller(c, staticKind{kind: KindUser}, time.Hour, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	p.Init(ctx)
	cancel()
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)

	p.Init(context.Background())
	assert.True(t, p.Running())
	p.Cleanup()
}

func TestPollerNotifiesWhenAdminTokenExpires(t *testing.T) {
	slot := &tokenSlot{token: signAdminToken(t, time.Now().Add(-time.Minute))}
	c := NewCoordinator(map[Kind]Validator{KindAdmin: NewAdminValidator(slot)}, Options{Logger: zaptest.NewLogger(t)})
	rec := &recordedExpiry{}
	c.Subscribe(rec.listener)

	p := NewPoller(c, staticKind{kind: KindAdmin}, 5*time.Millisecond, zaptest.NewLogger(t))
	p.Init(context.Background())
	t.Cleanup(p.Cleanup)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	// Later ticks hit the cached failure and stay quiet.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}
