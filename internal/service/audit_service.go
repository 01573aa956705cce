package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/exim-session/internal/events"
)

// EventCounter counts audited events.
type EventCounter interface {
	RecordSessionEvent(eventType string)
}

// AuditService records authentication events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	counter    EventCounter
}

// NewAuditService creates the service. counter may be nil.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, counter EventCounter) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		counter:    counter,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionStarted, a.record)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.record)
	a.dispatcher.Subscribe(events.EventSessionRejected, a.record)
}

func (a *AuditService) record(_ context.Context, event events.Event) error {
	if a.counter != nil {
		a.counter.RecordSessionEvent(string(event.Type))
	}
	a.logger.Info("auth event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("kind", event.Actor.Kind.String()),
		zap.String("user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	return nil
}
