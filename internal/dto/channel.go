package dto

import (
	"time"

	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/services"
)

// ChannelDTO represents a channel in API responses
type ChannelDTO struct {
	ID              uint64             `json:"id"`
	Type            models.ChannelType `json:"type"`
	Name            string             `json:"name"`
	OrganizationID  *uint64            `json:"organization_id,omitempty"`
	CreatedBy       uint64             `json:"created_by"`
	IsSystemChannel bool               `json:"is_system_channel"`
	LastMessageAt   *time.Time         `json:"last_message_at,omitempty"`
	ArchivedAt      *time.Time         `json:"archived_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ChannelMemberDTO represents a channel member in API responses
type ChannelMemberDTO struct {
	User       UserDTO            `json:"user"`
	Role       models.ChannelRole `json:"role"`
	JoinedAt   time.Time          `json:"joined_at"`
	LastReadAt *time.Time         `json:"last_read_at,omitempty"`
}

// ChannelSummaryDTO represents an enriched channel list entry
type ChannelSummaryDTO struct {
	ChannelDTO
	MemberCount int64               `json:"member_count"`
	YourRole    *models.ChannelRole `json:"your_role,omitempty"`
	LastMessage *LastMessageDTO     `json:"last_message,omitempty"`
	Recipient   *UserDTO            `json:"recipient,omitempty"`
}

// LastMessageDTO is the condensed most-recent message shown on a
// channel list entry
type LastMessageDTO struct {
	ID        uint64    `json:"id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToChannelDTO converts a Channel model to ChannelDTO
func ToChannelDTO(channel models.Channel) ChannelDTO {
	return ChannelDTO{
		ID:              channel.ID,
		Type:            channel.Type,
		Name:            channel.Name,
		OrganizationID:  channel.OrganizationID,
		CreatedBy:       channel.CreatedBy,
		IsSystemChannel: channel.IsSystemChannel,
		LastMessageAt:   channel.LastMessageAt,
		ArchivedAt:      channel.ArchivedAt,
		CreatedAt:       channel.CreatedAt,
	}
}

// ToChannelMemberDTO converts a member to DTO
func ToChannelMemberDTO(member models.ChannelMember) ChannelMemberDTO {
	return ChannelMemberDTO{
		User:       ToUserDTO(member.User),
		Role:       member.Role,
		JoinedAt:   member.JoinedAt,
		LastReadAt: member.LastReadAt,
	}
}

// ToChannelSummaryDTO converts a service summary to DTO
func ToChannelSummaryDTO(summary services.ChannelSummary) ChannelSummaryDTO {
	dto := ChannelSummaryDTO{
		ChannelDTO:  ToChannelDTO(summary.Channel),
		MemberCount: summary.MemberCount,
	}
	if summary.Membership != nil {
		role := summary.Membership.Role
		dto.YourRole = &role
	}
	if summary.LastMessage != nil {
		dto.LastMessage = &LastMessageDTO{
			ID:        summary.LastMessage.ID,
			SenderID:  summary.LastMessage.SenderID,
			Content:   summary.LastMessage.Content,
			CreatedAt: summary.LastMessage.CreatedAt,
		}
	}
	if summary.Recipient != nil {
		recipient := ToUserDTO(*summary.Recipient)
		dto.Recipient = &recipient
	}
	return dto
}
