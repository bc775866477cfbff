package repository

import (
	"time"

	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
)

// ChannelRepository defines the interface for channel and membership
// data access. Every multi-step mutation that carries an invariant
// (direct-channel uniqueness, the single-owner rule, cascade deletes)
// executes inside one transaction.
type ChannelRepository interface {
	// CreateChannel inserts a channel together with its initial members
	// in a single transaction
	CreateChannel(channel *models.Channel, members ...*models.ChannelMember) error

	// FindDirect finds the direct channel for an unordered user pair
	FindDirect(userA, userB uint64) (*models.Channel, error)

	// CreateDirect inserts a direct channel with both participant rows,
	// converging on an existing channel if a concurrent caller won the
	// race for the same pair
	CreateDirect(channel *models.Channel, memberA, memberB *models.ChannelMember) (*models.Channel, error)

	// FindByID finds a channel by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Channel, error)

	// Update updates a channel
	Update(channel *models.Channel) error

	// DeleteCascade removes a channel's messages, then memberships,
	// then the channel row itself, in that order, in one transaction.
	// It returns the blob references of the removed attachments.
	DeleteCascade(id uint64) ([]string, error)

	// ListForUser lists channels the user is a member of
	ListForUser(userID uint64) ([]models.Channel, error)

	// ListSystem lists system channels
	ListSystem() ([]models.Channel, error)

	// AddMember adds a membership row
	AddMember(member *models.ChannelMember) error

	// FindMember finds a specific membership
	FindMember(channelID, userID uint64) (*models.ChannelMember, error)

	// ListMembers lists all members of a channel
	ListMembers(channelID uint64) ([]models.ChannelMember, error)

	// CountMembers counts the members of a channel
	CountMembers(channelID uint64) (int64, error)

	// RemoveMemberWithTransfer deletes a membership, first promoting a
	// successor owner in the same transaction when the leaving member
	// holds the owner role and other members remain
	RemoveMemberWithTransfer(channelID, userID uint64) error

	// TransferOwnership promotes the target to owner and demotes the
	// current owner to admin in one transaction
	TransferOwnership(channelID, newOwnerID uint64) error

	// UpdateMemberRole sets a membership's role
	UpdateMemberRole(channelID, userID uint64, role models.ChannelRole) error

	// UpdateMemberLastRead advances a membership's read cursor
	UpdateMemberLastRead(channelID, userID uint64, readAt time.Time) error
}

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	// Create inserts a message with its attachments, bumps the
	// channel's last_message_at and, when markSenderRead is set,
	// advances the sender's read cursor, all in one transaction
	Create(message *models.Message, markSenderRead bool) error

	// FindByID finds a message by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Message, error)

	// ListBefore fetches up to limit messages older than the cursor
	// (newest first); a nil cursor starts from the channel head
	ListBefore(channelID uint64, before *uint64, limit int) ([]models.Message, error)

	// LastMessage returns the most recent message in a channel
	LastMessage(channelID uint64) (*models.Message, error)

	// Update updates a message
	Update(message *models.Message) error

	// SoftDelete marks a message deleted while retaining the row
	SoftDelete(id uint64, deletedAt time.Time) error

	// CountAfter counts messages created strictly after the given time
	CountAfter(channelID uint64, after *time.Time) (int64, error)

	// AddReaction inserts a reaction row
	AddReaction(reaction *models.MessageReaction) error

	// FindReaction finds a specific reaction
	FindReaction(messageID uint64, emoji string, userID uint64) (*models.MessageReaction, error)

	// RemoveReaction deletes the caller's own reaction
	RemoveReaction(messageID uint64, emoji string, userID uint64) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role           *permissions.Role
	Status         *models.UserStatus
	OrganizationID *uint64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Update updates a user
	Update(user *models.User) error

	// List lists users matching the filter
	List(filter UserFilter) ([]models.User, error)

	// ListIDsByOrganization lists user IDs in an organization,
	// excluding one user
	ListIDsByOrganization(organizationID, excludeUserID uint64) ([]uint64, error)

	// CountByRole counts users holding a role
	CountByRole(role permissions.Role) (int64, error)
}

// NotificationRepository defines the interface for notification data
// access
type NotificationRepository interface {
	// CreateBatch inserts a batch of notifications
	CreateBatch(notifications []models.Notification) error

	// ListByUser lists a user's notifications, newest first
	ListByUser(userID uint64, unreadOnly bool, limit int) ([]models.Notification, error)

	// MarkRead marks one of the user's notifications as read
	MarkRead(id, userID uint64) error

	// MarkAllRead marks all of the user's notifications as read
	MarkAllRead(userID uint64) error

	// CountUnread counts the user's unread notifications
	CountUnread(userID uint64) (int64, error)
}
