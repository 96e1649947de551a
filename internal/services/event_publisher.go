package services

import (
	"context"

	"rancho-chat/internal/events"
	"rancho-chat/pkg/logger"
)

// EventPublisher fans a state change out to realtime subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// eventEmitter publishes best effort. A failed publish is logged and never
// changes the outcome of the operation that triggered it.
type eventEmitter struct {
	publisher EventPublisher
	log       *logger.Logger
}

type eventTarget struct {
	conversationID string
	userID         string
}

func (e eventEmitter) emit(ctx context.Context, eventType, aggregateType, aggregateID string, target eventTarget, payload interface{}) {
	if e.publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, aggregateType, aggregateID, payload)
	if err != nil {
		e.logger(ctx).Errorf("build %s event: %s", eventType, err)
		return
	}
	env.ConversationID = target.conversationID
	env.UserID = target.userID
	if err := e.publisher.Publish(ctx, env); err != nil {
		e.logger(ctx).Warnf("publish %s event for %s: %s", eventType, aggregateID, err)
	}
}

func (e eventEmitter) logger(ctx context.Context) *logger.Logger {
	l := e.log
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	if l == nil {
		l = logger.NewNop()
	}
	return l.WithContext(ctx)
}
