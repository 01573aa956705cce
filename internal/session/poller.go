package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the period between background checks.
const DefaultPollInterval = 30 * time.Second

// Poller is the single periodic trigger for a Coordinator. It only validates
// while the coordinator has subscribers and a credential is stored. The timer
// stays armed when the last subscriber leaves; idle ticks do no work.
type Poller struct {
	coordinator *Coordinator
	credentials KindSource
	interval    time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a stopped poller.
func NewPoller(coordinator *Coordinator, credentials KindSource, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		coordinator: coordinator,
		credentials: credentials,
		interval:    interval,
		logger:      logger,
	}
}

// Init starts the timer. Calls while it is running are no-ops. The timer
// stops when ctx is done or Cleanup is called.
func (p *Poller) Init(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		select {
		case <-p.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, done)
	p.logger.Debug("session poller started", zap.Duration("interval", p.interval))
}

// Running reports whether the timer is armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Cleanup stops the timer and waits for an in-progress tick to finish. A later
// Init starts a new timer.
func (p *Poller) Cleanup() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Debug("session poller stopped")
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one poll. It returns the kind validated, or KindNone when skipped.
func (p *Poller) tick(ctx context.Context) Kind {
	if p.coordinator.Broadcaster().Count() == 0 {
		return KindNone
	}
	kind := p.credentials.ActiveKind()
	if !kind.Valid() {
		p.logger.Debug("no credential stored; skipping poll")
		return KindNone
	}
	p.coordinator.Validate(ctx, kind)
	return kind
}
