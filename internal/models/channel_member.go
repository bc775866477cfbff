package models

import "time"

type ChannelRole string

const (
	ChannelRoleOwner  ChannelRole = "owner"
	ChannelRoleAdmin  ChannelRole = "admin"
	ChannelRoleMember ChannelRole = "member"
)

type ChannelMember struct {
	ChannelID  uint64      `gorm:"primarykey" json:"channel_id"`
	UserID     uint64      `gorm:"primarykey" json:"user_id"`
	Role       ChannelRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt   time.Time   `json:"joined_at"`
	LastReadAt *time.Time  `json:"last_read_at"`

	// Relations
	Channel Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// CanAdministerChannel reports whether the membership role may manage
// members and channel settings.
func (m *ChannelMember) CanAdministerChannel() bool {
	return m.Role == ChannelRoleOwner || m.Role == ChannelRoleAdmin
}
