package websocket

import (
	"context"
	"time"

	"rancho-chat/internal/events"
	"rancho-chat/pkg/logger"
)

const (
	bridgeMinBackoff = 500 * time.Millisecond
	bridgeMaxBackoff = 30 * time.Second
)

// RedisBridge relays every published event into the local hub, so each API
// instance reaches its own connections. A dropped subscription is retried
// until ctx is done.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	logger     *logger.Logger
	minBackoff time.Duration
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub, l *logger.Logger) *RedisBridge {
	if l == nil {
		l = logger.NewNop()
	}
	return &RedisBridge{subscriber: subscriber, hub: hub, logger: l, minBackoff: bridgeMinBackoff}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	backoff := b.minBackoff
	for {
		err := b.subscriber.Subscribe(ctx, []string{events.ChannelPattern}, func(channel string, payload []byte) {
			b.hub.Broadcast(channel, payload)
		})
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = b.minBackoff
			continue
		}

		b.logger.Warnf("event subscription lost, retrying in %s: %s", backoff, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, bridgeMaxBackoff)
	}
}
