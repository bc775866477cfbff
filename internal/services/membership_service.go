package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrDirectChannelMembers = errors.New("direct channel membership cannot be changed")
	ErrAlreadyChannelMember = errors.New("user is already a member of this channel")
	ErrMembershipRestricted = errors.New("only channel owners or admins can manage members")
	ErrMemberNotFound       = errors.New("channel member not found")
	ErrCannotDemoteOwner    = errors.New("transfer ownership before demoting the current owner")
	ErrJoinNotPublic        = errors.New("only public channels can be joined directly")
	ErrCannotLeaveDirect    = errors.New("cannot leave a direct channel")
	ErrInvalidChannelRole   = errors.New("invalid channel role")
)

// MembershipService manages channel membership, the single-owner
// invariant, and the per-member read cursor.
type MembershipService struct {
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MembershipService {
	return &MembershipService{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// ListMembers lists a channel's members for an actor with access.
func (s *MembershipService) ListMembers(actor *models.User, channelID uint64) ([]models.ChannelMember, error) {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if _, err := resolveChannelAccess(s.channelRepo, channel, actor); err != nil {
		return nil, err
	}

	members, err := s.channelRepo.ListMembers(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddMember invites a user into a public or private channel. The actor
// must be globally privileged or hold an owner/admin membership; the
// invited user must share the channel's organization unless the actor
// is privileged.
func (s *MembershipService) AddMember(actor *models.User, channelID, targetUserID uint64) (*models.ChannelMember, error) {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if channel.Type == models.ChannelTypeDirect {
		return nil, ErrDirectChannelMembers
	}

	if !permissions.IsPrivileged(actor.Role) {
		member, err := s.channelRepo.FindMember(channelID, actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMembershipRestricted
			}
			return nil, fmt.Errorf("failed to find membership: %w", err)
		}
		if !member.CanAdministerChannel() {
			return nil, ErrMembershipRestricted
		}
	}

	target, err := s.userRepo.FindByID(targetUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if channel.OrganizationID != nil && !permissions.IsPrivileged(actor.Role) {
		if target.OrganizationID == nil || *target.OrganizationID != *channel.OrganizationID {
			return nil, ErrNotInOrganization
		}
	}

	if _, err := s.channelRepo.FindMember(channelID, targetUserID); err == nil {
		return nil, ErrAlreadyChannelMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ChannelMember{
		ChannelID: channelID,
		UserID:    targetUserID,
		Role:      models.ChannelRoleMember,
		JoinedAt:  time.Now(),
	}
	if err := s.channelRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// JoinChannel adds the actor to a public channel.
func (s *MembershipService) JoinChannel(actor *models.User, channelID uint64) (*models.ChannelMember, error) {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if channel.Type != models.ChannelTypePublic {
		return nil, ErrJoinNotPublic
	}

	if channel.OrganizationID != nil && !permissions.IsPrivileged(actor.Role) {
		if actor.OrganizationID == nil || *actor.OrganizationID != *channel.OrganizationID {
			return nil, ErrNotInOrganization
		}
	}

	if _, err := s.channelRepo.FindMember(channelID, actor.ID); err == nil {
		return nil, ErrAlreadyChannelMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ChannelMember{
		ChannelID: channelID,
		UserID:    actor.ID,
		Role:      models.ChannelRoleMember,
		JoinedAt:  time.Now(),
	}
	if err := s.channelRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to join channel: %w", err)
	}

	return member, nil
}

// LeaveChannel removes the actor's own membership. A leaving owner
// hands ownership to a successor in the same atomic step.
func (s *MembershipService) LeaveChannel(actor *models.User, channelID uint64) error {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return err
	}
	if channel.Type == models.ChannelTypeDirect {
		return ErrCannotLeaveDirect
	}

	if _, err := s.channelRepo.FindMember(channelID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if err := s.channelRepo.RemoveMemberWithTransfer(channelID, actor.ID); err != nil {
		return fmt.Errorf("failed to leave channel: %w", err)
	}
	return nil
}

// RemoveMember removes another user from a channel. Self-removal
// delegates to LeaveChannel semantics.
func (s *MembershipService) RemoveMember(actor *models.User, channelID, targetUserID uint64) error {
	if targetUserID == actor.ID {
		return s.LeaveChannel(actor, channelID)
	}

	channel, err := s.findChannel(channelID)
	if err != nil {
		return err
	}
	if channel.Type == models.ChannelTypeDirect {
		return ErrDirectChannelMembers
	}

	if !permissions.IsPrivileged(actor.Role) {
		member, err := s.channelRepo.FindMember(channelID, actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMembershipRestricted
			}
			return fmt.Errorf("failed to find membership: %w", err)
		}
		if !member.CanAdministerChannel() {
			return ErrMembershipRestricted
		}
	}

	if _, err := s.channelRepo.FindMember(channelID, targetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if err := s.channelRepo.RemoveMemberWithTransfer(channelID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes a member's channel role. Setting a new
// owner demotes the previous owner to admin in the same atomic step;
// demoting the current owner directly is rejected.
func (s *MembershipService) UpdateMemberRole(actor *models.User, channelID, targetUserID uint64, newRole models.ChannelRole) (*models.ChannelMember, error) {
	switch newRole {
	case models.ChannelRoleOwner, models.ChannelRoleAdmin, models.ChannelRoleMember:
	default:
		return nil, ErrInvalidChannelRole
	}

	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if channel.Type == models.ChannelTypeDirect {
		return nil, ErrDirectChannelMembers
	}

	if !permissions.IsPrivileged(actor.Role) {
		member, err := s.channelRepo.FindMember(channelID, actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMembershipRestricted
			}
			return nil, fmt.Errorf("failed to find membership: %w", err)
		}
		if member.Role != models.ChannelRoleOwner {
			return nil, ErrMembershipRestricted
		}
	}

	target, err := s.channelRepo.FindMember(channelID, targetUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	if newRole == models.ChannelRoleOwner {
		if err := s.channelRepo.TransferOwnership(channelID, targetUserID); err != nil {
			return nil, fmt.Errorf("failed to transfer ownership: %w", err)
		}
	} else {
		if target.Role == models.ChannelRoleOwner {
			return nil, ErrCannotDemoteOwner
		}
		if err := s.channelRepo.UpdateMemberRole(channelID, targetUserID, newRole); err != nil {
			return nil, fmt.Errorf("failed to update member role: %w", err)
		}
	}

	return s.channelRepo.FindMember(channelID, targetUserID)
}

// MarkChannelAsRead advances the actor's read cursor to now.
func (s *MembershipService) MarkChannelAsRead(actor *models.User, channelID uint64) error {
	if _, err := s.findChannel(channelID); err != nil {
		return err
	}

	if _, err := s.channelRepo.FindMember(channelID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotChannelMember
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if err := s.channelRepo.UpdateMemberLastRead(channelID, actor.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark channel as read: %w", err)
	}
	return nil
}

// GetUnreadCount counts messages newer than the actor's read cursor. A
// non-member always sees zero; a member who has never read the channel
// counts the full history.
func (s *MembershipService) GetUnreadCount(actor *models.User, channelID uint64) (int64, error) {
	if _, err := s.findChannel(channelID); err != nil {
		return 0, err
	}

	member, err := s.channelRepo.FindMember(channelID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to find membership: %w", err)
	}

	count, err := s.messageRepo.CountAfter(channelID, member.LastReadAt)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *MembershipService) findChannel(channelID uint64) (*models.Channel, error) {
	channel, err := s.channelRepo.FindByID(channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}
	return channel, nil
}
