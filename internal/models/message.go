package models

import "time"

type Message struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	ChannelID uint64     `gorm:"not null;index:idx_messages_channel_created" json:"channel_id"`
	SenderID  uint64     `gorm:"not null;index" json:"sender_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	ReplyToID *uint64    `gorm:"index" json:"reply_to_id,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	// Soft-delete marker. Deliberately not gorm.DeletedAt: privileged
	// readers still fetch deleted rows, everyone else sees a redacted
	// placeholder.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `gorm:"index:idx_messages_channel_created" json:"created_at"`

	// Relations
	Channel     Channel             `gorm:"foreignKey:ChannelID" json:"-"`
	Sender      User                `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReplyTo     *Message            `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`
	Attachments []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	Reactions   []MessageReaction   `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`
}

// IsDeleted reports whether the message has been soft-deleted.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// MessageAttachment is an opaque reference into the external blob
// store; the core never inspects file bytes.
type MessageAttachment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	MessageID uint64    `gorm:"not null;index" json:"message_id"`
	BlobRef   string    `gorm:"type:varchar(512);not null" json:"blob_ref"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageReaction struct {
	MessageID uint64    `gorm:"primarykey" json:"message_id"`
	Emoji     string    `gorm:"primarykey;type:varchar(64)" json:"emoji"`
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
