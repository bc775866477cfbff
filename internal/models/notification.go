package models

import "time"

type NotificationType string

const (
	NotificationTypeNewMessage NotificationType = "new_message"
)

// Notification rows are created only by the dispatcher worker, never
// inline on the message-send path.
type Notification struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	ChannelID *uint64          `gorm:"index" json:"channel_id,omitempty"`
	MessageID *uint64          `json:"message_id,omitempty"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
