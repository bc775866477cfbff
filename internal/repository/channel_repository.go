package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/team-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormChannelRepository is a GORM implementation of ChannelRepository
type GormChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &GormChannelRepository{db: db}
}

// CreateChannel inserts a channel and its initial members in one transaction
func (r *GormChannelRepository) CreateChannel(channel *models.Channel, members ...*models.ChannelMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(channel).Error; err != nil {
			return err
		}
		for _, member := range members {
			member.ChannelID = channel.ID
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindDirect finds the direct channel for an unordered user pair
func (r *GormChannelRepository) FindDirect(userA, userB uint64) (*models.Channel, error) {
	return findDirect(r.db, userA, userB)
}

func findDirect(db *gorm.DB, userA, userB uint64) (*models.Channel, error) {
	var channel models.Channel
	err := db.Where("pair_key = ?", models.DirectPairKey(userA, userB)).
		First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// CreateDirect inserts a direct channel with both participant rows.
// The unique index on pair_key is the convergence point for concurrent
// callers: the loser's insert fails with a duplicate key, its
// transaction rolls back, and the winner's channel is returned instead.
func (r *GormChannelRepository) CreateDirect(channel *models.Channel, memberA, memberB *models.ChannelMember) (*models.Channel, error) {
	pairKey := models.DirectPairKey(memberA.UserID, memberB.UserID)
	channel.PairKey = &pairKey

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(channel).Error; err != nil {
			return err
		}
		memberA.ChannelID = channel.ID
		memberB.ChannelID = channel.ID
		if err := tx.Create(memberA).Error; err != nil {
			return err
		}
		return tx.Create(memberB).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return findDirect(r.db, memberA.UserID, memberB.UserID)
		}
		return nil, err
	}
	return channel, nil
}

// FindByID finds a channel by ID
func (r *GormChannelRepository) FindByID(id uint64, preload ...string) (*models.Channel, error) {
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}

	var channel models.Channel
	if err := query.First(&channel, id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// Update updates a channel
func (r *GormChannelRepository) Update(channel *models.Channel) error {
	return r.db.Save(channel).Error
}

// DeleteCascade removes messages, then memberships, then the channel.
// The ordering avoids orphaned rows if the cascade is interrupted. It
// returns the blob references of the removed attachments so the caller
// can release the stored blobs after the transaction commits.
func (r *GormChannelRepository) DeleteCascade(id uint64) ([]string, error) {
	var blobRefs []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var messageIDs []uint64
		if err := tx.Model(&models.Message{}).
			Where("channel_id = ?", id).
			Pluck("id", &messageIDs).Error; err != nil {
			return err
		}

		if len(messageIDs) > 0 {
			if err := tx.Model(&models.MessageAttachment{}).
				Where("message_id IN ?", messageIDs).
				Pluck("blob_ref", &blobRefs).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).
				Delete(&models.MessageReaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).
				Delete(&models.MessageAttachment{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("channel_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		if err := tx.Where("channel_id = ?", id).Delete(&models.ChannelMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Channel{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return blobRefs, nil
}

// ListForUser lists channels the user is a member of
func (r *GormChannelRepository) ListForUser(userID uint64) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.
		Joins("JOIN channel_members ON channel_members.channel_id = channels.id").
		Where("channel_members.user_id = ?", userID).
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// ListSystem lists system channels
func (r *GormChannelRepository) ListSystem() ([]models.Channel, error) {
	var channels []models.Channel
	if err := r.db.Where("is_system_channel = ?", true).Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// AddMember adds a membership row
func (r *GormChannelRepository) AddMember(member *models.ChannelMember) error {
	return r.db.Create(member).Error
}

// FindMember finds a specific membership
func (r *GormChannelRepository) FindMember(channelID, userID uint64) (*models.ChannelMember, error) {
	var member models.ChannelMember
	err := r.db.Where("channel_id = ? AND user_id = ?", channelID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a channel
func (r *GormChannelRepository) ListMembers(channelID uint64) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	err := r.db.Preload("User").
		Where("channel_id = ?", channelID).
		Order("joined_at ASC, user_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// CountMembers counts the members of a channel
func (r *GormChannelRepository) CountMembers(channelID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChannelMember{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}

// RemoveMemberWithTransfer deletes a membership. When the leaving
// member is the channel owner and others remain, ownership moves to the
// earliest-joined admin, else the earliest remaining member, inside the
// same transaction so no reader ever observes a channel without an
// owner.
func (r *GormChannelRepository) RemoveMemberWithTransfer(channelID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var leaving models.ChannelMember
		if err := tx.Where("channel_id = ? AND user_id = ?", channelID, userID).
			First(&leaving).Error; err != nil {
			return err
		}

		if leaving.Role == models.ChannelRoleOwner {
			successor, err := findSuccessor(tx, channelID, userID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if successor != nil {
				err := tx.Model(&models.ChannelMember{}).
					Where("channel_id = ? AND user_id = ?", channelID, successor.UserID).
					Update("role", models.ChannelRoleOwner).Error
				if err != nil {
					return err
				}
			}
		}

		return tx.Where("channel_id = ? AND user_id = ?", channelID, userID).
			Delete(&models.ChannelMember{}).Error
	})
}

// findSuccessor picks the next owner: the earliest-joined admin if one
// exists, otherwise the earliest remaining member.
func findSuccessor(tx *gorm.DB, channelID, excludeUserID uint64) (*models.ChannelMember, error) {
	var successor models.ChannelMember
	err := tx.Where("channel_id = ? AND user_id <> ? AND role = ?",
		channelID, excludeUserID, models.ChannelRoleAdmin).
		Order("joined_at ASC, user_id ASC").
		First(&successor).Error
	if err == nil {
		return &successor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = tx.Where("channel_id = ? AND user_id <> ?", channelID, excludeUserID).
		Order("joined_at ASC, user_id ASC").
		First(&successor).Error
	if err != nil {
		return nil, err
	}
	return &successor, nil
}

// TransferOwnership promotes the target to owner and demotes the
// current owner to admin in one transaction, so there is never a moment
// with two owners.
func (r *GormChannelRepository) TransferOwnership(channelID, newOwnerID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ChannelMember{}).
			Where("channel_id = ? AND role = ? AND user_id <> ?",
				channelID, models.ChannelRoleOwner, newOwnerID).
			Update("role", models.ChannelRoleAdmin).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.ChannelMember{}).
			Where("channel_id = ? AND user_id = ?", channelID, newOwnerID).
			Update("role", models.ChannelRoleOwner).Error
	})
}

// UpdateMemberRole sets a membership's role
func (r *GormChannelRepository) UpdateMemberRole(channelID, userID uint64, role models.ChannelRole) error {
	return r.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("role", role).Error
}

// UpdateMemberLastRead advances a membership's read cursor
func (r *GormChannelRepository) UpdateMemberLastRead(channelID, userID uint64, readAt time.Time) error {
	return r.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("last_read_at", readAt).Error
}
