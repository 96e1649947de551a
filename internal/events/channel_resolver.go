package events

// ChannelResolver determines which Redis channels an envelope is published to
type ChannelResolver interface {
	ResolveChannels(env Envelope) []string
}

// ConversationChannelResolver fans out to the conversation channel and, when
// the envelope names a user, to that user's private channel.
type ConversationChannelResolver struct{}

func NewConversationChannelResolver() *ConversationChannelResolver {
	return &ConversationChannelResolver{}
}

func (r *ConversationChannelResolver) ResolveChannels(env Envelope) []string {
	var channels []string
	if env.ConversationID != "" {
		channels = append(channels, ConversationChannel(env.ConversationID))
	}
	if env.UserID != "" {
		channels = append(channels, UserChannel(env.UserID))
	}
	return channels
}

func ConversationChannel(conversationID string) string {
	return ChannelPrefixConversation + conversationID
}

func UserChannel(userID string) string {
	return ChannelPrefixUser + userID
}
