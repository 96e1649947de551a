package websocket

import (
	"context"
	"strings"

	"rancho-chat/internal/events"
	"rancho-chat/internal/repository"
)

// ChannelAuthorizer decides which pub/sub channels an account may listen on.
type ChannelAuthorizer struct {
	conversations repository.ConversationReader
}

func NewChannelAuthorizer(conversations repository.ConversationReader) *ChannelAuthorizer {
	return &ChannelAuthorizer{conversations: conversations}
}

// CanSubscribe allows the account's own user channel and the channels of
// conversations it is a member or owner of. Everything else is denied.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, accountID, channel string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	if channel == events.UserChannel(accountID) {
		return true, nil
	}

	conversationID, ok := strings.CutPrefix(channel, events.ChannelPrefixConversation)
	if !ok || conversationID == "" {
		return false, nil
	}
	c, err := a.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return c.HasMember(accountID) || c.OwnerID == accountID, nil
}
