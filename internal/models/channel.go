package models

import (
	"fmt"
	"time"
)

type ChannelType string

const (
	ChannelTypePublic  ChannelType = "public"
	ChannelTypePrivate ChannelType = "private"
	ChannelTypeDirect  ChannelType = "direct"
)

type Channel struct {
	ID              uint64      `gorm:"primarykey" json:"id"`
	Type            ChannelType `gorm:"type:varchar(20);not null;index" json:"type"`
	Name            string      `gorm:"type:varchar(255);not null" json:"name"`
	OrganizationID  *uint64     `gorm:"index" json:"organization_id"`
	CreatedBy       uint64      `gorm:"not null;index" json:"created_by"`
	RecipientID     *uint64     `gorm:"index" json:"recipient_id,omitempty"`
	PairKey         *string     `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	IsSystemChannel bool        `gorm:"not null;default:false" json:"is_system_channel"`
	LastMessageAt   *time.Time  `gorm:"index" json:"last_message_at"`
	ArchivedAt      *time.Time  `json:"archived_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Relations
	Organization *Organization   `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Creator      User            `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Members      []ChannelMember `gorm:"foreignKey:ChannelID" json:"members,omitempty"`
	Messages     []Message       `gorm:"foreignKey:ChannelID" json:"-"`
}

// IsArchived reports whether the channel carries the soft-delete marker.
func (c *Channel) IsArchived() bool {
	return c.ArchivedAt != nil
}

// DirectPairKey returns the canonical key for a direct channel's
// unordered participant pair. The unique index over PairKey is what
// guarantees concurrent creators converge on a single channel.
func DirectPairKey(userA, userB uint64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}
