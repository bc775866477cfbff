package dto

import (
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64            `json:"id"`
	Username       string            `json:"username"`
	Role           permissions.Role  `json:"role"`
	Status         models.UserStatus `json:"status"`
	OrganizationID *uint64           `json:"organization_id,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Username:       user.Username,
		Role:           user.Role,
		Status:         user.Status,
		OrganizationID: user.OrganizationID,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}
