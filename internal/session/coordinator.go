package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFreshnessWindow = 30 * time.Second
	DefaultWaitTimeout     = 5 * time.Second
)

// Options tunes a Coordinator.
type Options struct {
	FreshnessWindow time.Duration
	WaitTimeout     time.Duration
	Logger          *zap.Logger
	Metrics         Recorder
}

// Coordinator answers whether the stored credential is valid. Construct one
// per process and share it.
type Coordinator struct {
	cache       *verdictCache
	gate        singleflight.Group
	validators  map[Kind]Validator
	broadcaster *Broadcaster
	waitTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
	metrics     Recorder
}

// NewCoordinator wires validators for each kind to a fresh cache and broadcaster.
func NewCoordinator(validators map[Kind]Validator, opts Options) *Coordinator {
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}

	byKind := make(map[Kind]Validator, len(validators))
	for k, v := range validators {
		byKind[k] = v
	}

	return &Coordinator{
		cache:       newVerdictCache(opts.FreshnessWindow),
		validators:  byKind,
		broadcaster: NewBroadcaster(opts.Logger, opts.Metrics),
		waitTimeout: opts.WaitTimeout,
		now:         time.Now,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// WithClock overrides the time source used for verdict freshness.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Broadcaster exposes the expiry fan-out.
func (c *Coordinator) Broadcaster() *Broadcaster {
	return c.broadcaster
}

// Subscribe registers l for expiry notifications.
func (c *Coordinator) Subscribe(l Listener) func() {
	return c.broadcaster.Subscribe(l)
}

// Validate reports whether the credential of the given kind is valid.
//
// A verdict younger than the freshness window is returned as is. Otherwise at
// most one check per kind runs at a time and concurrent callers share its
// result. Callers stop waiting after the wait timeout or when ctx is done and
// fall back to the last stored verdict.
func (c *Coordinator) Validate(ctx context.Context, kind Kind) bool {
	if v, ok := c.cache.fresh(kind, c.now()); ok {
		c.metrics.Validation(kind, OutcomeCached)
		return v.Valid
	}

	validator, ok := c.validators[kind]
	if !ok {
		c.logger.Debug("no validator for credential kind", zap.String("kind", kind.String()))
		return false
	}

	// The check outlives any single caller; it is bounded by the validator.
	runCtx := context.WithoutCancel(ctx)
	ch := c.gate.DoChan(string(kind), func() (interface{}, error) {
		return c.run(runCtx, kind, validator), nil
	})

	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-timer.C:
		c.metrics.Validation(kind, OutcomeWaitTimeout)
		c.logger.Warn("timed out waiting for in-flight validation",
			zap.String("kind", kind.String()),
			zap.Duration("wait", c.waitTimeout))
	case <-ctx.Done():
	}
	return c.lastValid(kind)
}

// run performs the underlying check. Only one run per kind executes at a time.
// A verdict is kept only if the cache was not invalidated while the check ran;
// a discarded definitive failure is not broadcast either.
func (c *Coordinator) run(ctx context.Context, kind Kind, validator Validator) bool {
	gen := c.cache.generation()
	if v, ok := c.cache.fresh(kind, c.now()); ok {
		c.metrics.Validation(kind, OutcomeCached)
		return v.Valid
	}

	err := validator.Check(ctx)
	switch {
	case err == nil:
		if !c.cache.store(kind, Verdict{Valid: true, CheckedAt: c.now()}, gen) {
			c.logger.Debug("discarding verdict from invalidated check", zap.String("kind", kind.String()))
		}
		c.metrics.Validation(kind, OutcomeValid)
		return true

	case errors.Is(err, ErrDefinitive):
		at := c.now()
		c.metrics.Validation(kind, OutcomeInvalid)
		if !c.cache.store(kind, Verdict{Valid: false, CheckedAt: at}, gen) {
			c.logger.Debug("discarding verdict from invalidated check", zap.String("kind", kind.String()))
			return false
		}
		c.logger.Info("credential no longer valid", zap.String("kind", kind.String()), zap.Error(err))
		c.broadcaster.NotifyAll(ctx, Expiry{Kind: kind, Reason: err.Error(), At: at})
		return false

	default:
		c.metrics.Validation(kind, OutcomeTransient)
		prev := c.lastValid(kind)
		c.logger.Warn("credential check failed; keeping previous verdict",
			zap.String("kind", kind.String()),
			zap.Bool("previous", prev),
			zap.Error(err))
		return prev
	}
}

func (c *Coordinator) lastValid(kind Kind) bool {
	v, _ := c.cache.last(kind)
	return v.Valid
}

// Last returns the stored verdict for kind without triggering a check.
func (c *Coordinator) Last(kind Kind) (Verdict, bool) {
	return c.cache.last(kind)
}

// InvalidateCache forgets every stored verdict so the next Validate rechecks.
func (c *Coordinator) InvalidateCache() {
	c.cache.reset()
}

// Reject handles a request the server refused with 401/403: the cache is
// dropped and listeners are notified straight away instead of at the next poll.
func (c *Coordinator) Reject(ctx context.Context, kind Kind) {
	c.InvalidateCache()
	c.metrics.Validation(kind, OutcomeRejected)
	c.logger.Info("request rejected by server", zap.String("kind", kind.String()))
	c.broadcaster.NotifyAll(ctx, Expiry{Kind: kind, Reason: "request rejected by server", At: c.now()})
}
