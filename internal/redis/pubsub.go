package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PubSub carries serialized events between API instances. It satisfies
// both events.ChannelPublisher and events.Subscriber.
type PubSub struct {
	client *redis.Client
}

func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

func (p *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe blocks, delivering every message on channels matching patterns,
// until ctx is cancelled. A nil error means the caller asked to stop.
func (p *PubSub) Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	sub := p.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	// The first reply confirms the subscription; a dead server fails here
	// instead of inside the receive loop.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("psubscribe %v: %w", patterns, err)
	}

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		handler(msg.Channel, []byte(msg.Payload))
	}
}
