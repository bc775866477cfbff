package constants

// Context keys
const (
	ContextKeyUserID        = "user_id"
	ContextKeyCurrentUser   = "current_user"
	ContextKeyChannel       = "channel"
	ContextKeyChannelMember = "channel_member"
)

// Auth
const (
	MinPasswordLength = 8
	SessionCookieName = "chat_session"
)

// Message pagination
const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 100
)

// Notifications
const (
	NotificationPreviewLength = 80
	NotificationQueueSize     = 256
)

// RedactedMessageContent replaces the body of a soft-deleted message
// for non-privileged readers.
const RedactedMessageContent = "[message deleted]"

// DirectMemberCount is the fixed membership size of a direct channel.
const DirectMemberCount = 2
