package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"github.com/yukikurage/team-chat-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrChannelNotFound          = errors.New("channel not found")
	ErrChannelNameRequired      = errors.New("channel name cannot be empty")
	ErrInvalidChannelType       = errors.New("invalid channel type")
	ErrSystemChannelRestricted  = errors.New("only administrators can create system channels")
	ErrChannelCreateRestricted  = errors.New("insufficient role to create channels")
	ErrNotInOrganization        = errors.New("user does not belong to this organization")
	ErrNotChannelMember         = errors.New("user is not a member of this channel")
	ErrDirectParticipants       = errors.New("direct channels require exactly two distinct participants")
	ErrDirectWithSelf           = errors.New("cannot open a direct channel with yourself")
	ErrChannelUpdateRestricted  = errors.New("only channel owners or admins can update this channel")
	ErrChannelDeleteRestricted  = errors.New("only the channel owner can delete this channel")
)

// ChannelService implements channel lifecycle and access rules.
type ChannelService struct {
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	engine      *permissions.Engine
	blobs       storage.BlobStore
}

// NewChannelService creates a new ChannelService.
func NewChannelService(channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, userRepo repository.UserRepository, engine *permissions.Engine, blobs storage.BlobStore) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		engine:      engine,
		blobs:       blobs,
	}
}

// CreateChannelInput represents parameters to create a channel.
type CreateChannelInput struct {
	Type            models.ChannelType
	Name            string
	OrganizationID  *uint64
	IsSystemChannel bool
	// Participants applies to direct channels only and must hold
	// exactly the two user ids of the conversation.
	Participants []uint64
}

// CreateChannel validates type-specific preconditions and creates the
// channel with its initial membership. Direct channels are an
// idempotent get-or-create keyed on the unordered participant pair.
func (s *ChannelService) CreateChannel(actor *models.User, input CreateChannelInput) (*models.Channel, error) {
	switch input.Type {
	case models.ChannelTypeDirect:
		other, err := directCounterpart(actor.ID, input.Participants)
		if err != nil {
			return nil, err
		}
		return s.GetOrCreateDirectMessage(actor, other)
	case models.ChannelTypePublic, models.ChannelTypePrivate:
	default:
		return nil, ErrInvalidChannelType
	}

	if input.Name == "" {
		return nil, ErrChannelNameRequired
	}
	if !s.engine.HasPermission(actor.Role, "channels:create", nil) {
		return nil, ErrChannelCreateRestricted
	}
	if input.IsSystemChannel && !permissions.IsPrivileged(actor.Role) {
		return nil, ErrSystemChannelRestricted
	}
	if input.OrganizationID != nil && actor.Role != permissions.RoleSuperAdmin {
		if !permissions.CanCreateOrganizationChannel(actor.Role) {
			return nil, ErrChannelCreateRestricted
		}
		if actor.OrganizationID == nil || *actor.OrganizationID != *input.OrganizationID {
			return nil, ErrNotInOrganization
		}
	}

	channel := &models.Channel{
		Type:            input.Type,
		Name:            input.Name,
		OrganizationID:  input.OrganizationID,
		CreatedBy:       actor.ID,
		IsSystemChannel: input.IsSystemChannel,
	}

	now := time.Now()
	members := []*models.ChannelMember{{
		UserID:   actor.ID,
		Role:     models.ChannelRoleOwner,
		JoinedAt: now,
	}}

	// Public organization channels enroll every other member of the
	// organization on creation.
	if input.Type == models.ChannelTypePublic && input.OrganizationID != nil {
		ids, err := s.userRepo.ListIDsByOrganization(*input.OrganizationID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization members: %w", err)
		}
		for _, id := range ids {
			members = append(members, &models.ChannelMember{
				UserID:   id,
				Role:     models.ChannelRoleMember,
				JoinedAt: now,
			})
		}
	}

	if err := s.channelRepo.CreateChannel(channel, members...); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return channel, nil
}

// GetOrCreateDirectMessage returns the direct channel between the
// actor and the other user, creating it on first use. Both orderings
// of the pair resolve to the same channel.
func (s *ChannelService) GetOrCreateDirectMessage(actor *models.User, otherUserID uint64) (*models.Channel, error) {
	if otherUserID == actor.ID {
		return nil, ErrDirectWithSelf
	}

	if _, err := s.userRepo.FindByID(otherUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if existing, err := s.channelRepo.FindDirect(actor.ID, otherUserID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up direct channel: %w", err)
	}

	recipientID := otherUserID
	channel := &models.Channel{
		Type:        models.ChannelTypeDirect,
		Name:        "",
		CreatedBy:   actor.ID,
		RecipientID: &recipientID,
	}

	now := time.Now()
	memberA := &models.ChannelMember{UserID: actor.ID, Role: models.ChannelRoleMember, JoinedAt: now}
	memberB := &models.ChannelMember{UserID: otherUserID, Role: models.ChannelRoleMember, JoinedAt: now}

	created, err := s.channelRepo.CreateDirect(channel, memberA, memberB)
	if err != nil {
		return nil, fmt.Errorf("failed to create direct channel: %w", err)
	}
	return created, nil
}

// ChannelSummary is a channel enriched for listing.
type ChannelSummary struct {
	Channel     models.Channel
	Membership  *models.ChannelMember
	MemberCount int64
	LastMessage *models.Message
	// Recipient is the other participant of a direct channel.
	Recipient *models.User
}

// ListChannelsInput represents filters for listing channels.
type ListChannelsInput struct {
	Type *models.ChannelType
}

// ListChannels returns the channels the actor belongs to, plus system
// channels for privileged roles, sorted by most recent activity.
func (s *ChannelService) ListChannels(actor *models.User, input ListChannelsInput) ([]ChannelSummary, error) {
	channels, err := s.channelRepo.ListForUser(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	if permissions.IsPrivileged(actor.Role) {
		system, err := s.channelRepo.ListSystem()
		if err != nil {
			return nil, fmt.Errorf("failed to list system channels: %w", err)
		}
		seen := make(map[uint64]struct{}, len(channels))
		for _, c := range channels {
			seen[c.ID] = struct{}{}
		}
		for _, c := range system {
			if _, ok := seen[c.ID]; !ok {
				channels = append(channels, c)
			}
		}
	}

	summaries := make([]ChannelSummary, 0, len(channels))
	for _, channel := range channels {
		if input.Type != nil && channel.Type != *input.Type {
			continue
		}

		summary, err := s.summarize(actor, channel)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i].Channel).After(lastActivity(summaries[j].Channel))
	})

	return summaries, nil
}

func lastActivity(channel models.Channel) time.Time {
	if channel.LastMessageAt != nil {
		return *channel.LastMessageAt
	}
	return channel.CreatedAt
}

func (s *ChannelService) summarize(actor *models.User, channel models.Channel) (ChannelSummary, error) {
	summary := ChannelSummary{Channel: channel}

	if member, err := s.channelRepo.FindMember(channel.ID, actor.ID); err == nil {
		summary.Membership = member
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return summary, fmt.Errorf("failed to find membership: %w", err)
	}

	count, err := s.channelRepo.CountMembers(channel.ID)
	if err != nil {
		return summary, fmt.Errorf("failed to count members: %w", err)
	}
	summary.MemberCount = count

	if last, err := s.messageRepo.LastMessage(channel.ID); err == nil {
		summary.LastMessage = last
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return summary, fmt.Errorf("failed to load last message: %w", err)
	}

	if channel.Type == models.ChannelTypeDirect {
		otherID := channel.CreatedBy
		if otherID == actor.ID && channel.RecipientID != nil {
			otherID = *channel.RecipientID
		}
		if other, err := s.userRepo.FindByID(otherID); err == nil {
			summary.Recipient = other
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, fmt.Errorf("failed to load direct recipient: %w", err)
		}
	}

	return summary, nil
}

// GetChannel returns a channel the actor may access, together with the
// actor's membership (nil for a privileged non-member on a system
// channel).
func (s *ChannelService) GetChannel(actor *models.User, channelID uint64) (*models.Channel, *models.ChannelMember, error) {
	channel, err := s.channelRepo.FindByID(channelID, "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrChannelNotFound
		}
		return nil, nil, fmt.Errorf("failed to find channel: %w", err)
	}

	member, err := resolveChannelAccess(s.channelRepo, channel, actor)
	if err != nil {
		return nil, nil, err
	}

	return channel, member, nil
}

// UpdateChannelInput represents mutable channel fields.
type UpdateChannelInput struct {
	Name     *string
	Archived *bool
}

// UpdateChannel renames or archives a channel. Requires channel owner
// or admin membership, or a globally privileged role.
func (s *ChannelService) UpdateChannel(actor *models.User, channelID uint64, input UpdateChannelInput) (*models.Channel, error) {
	channel, member, err := s.GetChannel(actor, channelID)
	if err != nil {
		return nil, err
	}

	if !permissions.IsPrivileged(actor.Role) {
		if member == nil || !member.CanAdministerChannel() {
			return nil, ErrChannelUpdateRestricted
		}
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrChannelNameRequired
		}
		channel.Name = *input.Name
	}
	if input.Archived != nil {
		if *input.Archived {
			if channel.ArchivedAt == nil {
				now := time.Now()
				channel.ArchivedAt = &now
			}
		} else {
			channel.ArchivedAt = nil
		}
	}

	if err := s.channelRepo.Update(channel); err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}

	return channel, nil
}

// DeleteChannel removes a channel and cascades over its messages and
// memberships. Only the channel owner or the top platform role may
// delete.
func (s *ChannelService) DeleteChannel(actor *models.User, channelID uint64) error {
	channel, err := s.channelRepo.FindByID(channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("failed to find channel: %w", err)
	}

	if actor.Role != permissions.RoleSuperAdmin {
		member, err := s.channelRepo.FindMember(channel.ID, actor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChannelDeleteRestricted
			}
			return fmt.Errorf("failed to find membership: %w", err)
		}
		if member.Role != models.ChannelRoleOwner {
			return ErrChannelDeleteRestricted
		}
	}

	blobRefs, err := s.channelRepo.DeleteCascade(channel.ID)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	// Blob removal is best-effort: the rows are already gone and a
	// storage failure must not resurrect the channel.
	for _, ref := range blobRefs {
		if err := s.blobs.Delete(ref); err != nil {
			log.Printf("failed to delete blob %s: %v", ref, err)
		}
	}

	return nil
}

// resolveChannelAccess returns the actor's membership on the channel,
// or nil when a privileged role accesses a system channel without one.
func resolveChannelAccess(channelRepo repository.ChannelRepository, channel *models.Channel, actor *models.User) (*models.ChannelMember, error) {
	member, err := channelRepo.FindMember(channel.ID, actor.ID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	if channel.IsSystemChannel && permissions.IsPrivileged(actor.Role) {
		return nil, nil
	}
	return nil, ErrNotChannelMember
}

// directCounterpart extracts the other participant from a two-id
// participant list that must include the actor.
func directCounterpart(actorID uint64, participants []uint64) (uint64, error) {
	if len(participants) != constants.DirectMemberCount {
		return 0, ErrDirectParticipants
	}
	a, b := participants[0], participants[1]
	if a == b {
		return 0, ErrDirectParticipants
	}
	switch actorID {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return 0, ErrDirectParticipants
	}
}
