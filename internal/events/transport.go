package events

import "context"

// ChannelPublisher is the raw pub/sub transport behind RedisPublisher.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber delivers raw payloads for every channel matching the given
// patterns until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}
