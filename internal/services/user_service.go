package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInsufficientRole = errors.New("insufficient role for this action")
	ErrCannotElevate    = errors.New("cannot assign a role at or above your own")
	ErrInvalidRole      = errors.New("unknown role")
	ErrInvalidStatus    = errors.New("unknown status")
)

// UserService handles administrative user management, gated by the
// permission engine's role hierarchy.
type UserService struct {
	userRepo repository.UserRepository
	engine   *permissions.Engine
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, engine *permissions.Engine) *UserService {
	return &UserService{
		userRepo: userRepo,
		engine:   engine,
	}
}

// ListUsers lists users matching the filter. Requires users:read.
func (s *UserService) ListUsers(actor *models.User, filter repository.UserFilter) ([]models.User, error) {
	if !s.engine.HasPermission(actor.Role, "users:read", nil) {
		return nil, ErrInsufficientRole
	}

	users, err := s.userRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserInput represents administrative changes to a user.
type UpdateUserInput struct {
	Role   *permissions.Role
	Status *models.UserStatus
}

// UpdateUser changes a user's role or status. The actor must hold
// users:update and strictly outrank the target; role assignments may
// never elevate the target to the actor's level or above.
func (s *UserService) UpdateUser(actor *models.User, targetID uint64, input UpdateUserInput) (*models.User, error) {
	if !s.engine.HasPermission(actor.Role, "users:update", nil) {
		return nil, ErrInsufficientRole
	}

	target, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.engine.CanManageUser(actor.Role, target.Role) {
		return nil, ErrInsufficientRole
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		if !s.engine.CanAssignRole(actor.Role, *input.Role) {
			return nil, ErrCannotElevate
		}
		target.Role = *input.Role
	}

	if input.Status != nil {
		if *input.Status != models.UserStatusActive && *input.Status != models.UserStatusInactive {
			return nil, ErrInvalidStatus
		}
		target.Status = *input.Status
	}

	if err := s.userRepo.Update(target); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return target, nil
}
