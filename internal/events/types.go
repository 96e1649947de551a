package events

// Event types follow the format domain.action

const (
	EventTypeMessageSent    = "message.sent"
	EventTypeMessageRemoved = "message.removed"
)

const (
	EventTypeConversationCreated = "conversation.created"
	EventTypeConversationRemoved = "conversation.removed"
	EventTypeParticipantAdded    = "participant.added"
	EventTypeParticipantRemoved  = "participant.removed"
)

const (
	EventTypeInvitationRequested = "invitation.requested"
	EventTypeInvitationAccepted  = "invitation.accepted"
	EventTypeInvitationDeclined  = "invitation.declined"
	EventTypeInvitationRemoved   = "invitation.removed"
)

const (
	AggregateTypeMessage      = "message"
	AggregateTypeConversation = "conversation"
	AggregateTypeInvitation   = "invitation"
)

// Redis channel prefixes
const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelPrefixUser         = "channel:user:"
	ChannelPattern            = "channel:*"
)
