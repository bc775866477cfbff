package models

import (
	"time"

	"github.com/yukikurage/team-chat-api/internal/permissions"
	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type User struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	Username       string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	PasswordHash   string           `gorm:"type:varchar(255);not null" json:"-"`
	Role           permissions.Role `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status         UserStatus       `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	OrganizationID *uint64          `gorm:"index" json:"organization_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relations
	Organization *Organization   `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Memberships  []ChannelMember `gorm:"foreignKey:UserID" json:"-"`
}
