package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"rancho-chat/internal/events"
)

// LocalPublisher delivers events straight to the hub. Used when Redis is
// disabled and the API runs as a single instance.
type LocalPublisher struct {
	hub      *Hub
	resolver events.ChannelResolver
}

func NewLocalPublisher(hub *Hub, resolver events.ChannelResolver) *LocalPublisher {
	if resolver == nil {
		resolver = events.NewConversationChannelResolver()
	}
	return &LocalPublisher{hub: hub, resolver: resolver}
}

func (p *LocalPublisher) Publish(_ context.Context, env events.Envelope) error {
	channels := p.resolver.ResolveChannels(env)
	if len(channels) == 0 {
		return nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	for _, channel := range channels {
		p.hub.Broadcast(channel, data)
	}
	return nil
}
