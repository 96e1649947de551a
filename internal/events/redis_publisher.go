package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// RedisPublisher serializes envelopes and fans them out over pub/sub.
type RedisPublisher struct {
	transport ChannelPublisher
	resolver  ChannelResolver
}

func NewRedisPublisher(transport ChannelPublisher, resolver ChannelResolver) *RedisPublisher {
	if resolver == nil {
		resolver = NewConversationChannelResolver()
	}
	return &RedisPublisher{transport: transport, resolver: resolver}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	channels := p.resolver.ResolveChannels(env)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, channel := range channels {
		if err := p.transport.Publish(ctx, channel, data); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}
