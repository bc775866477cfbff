package repository

import (
	"time"

	"github.com/yukikurage/team-chat-api/internal/models"
	"gorm.io/gorm"
)

// GormMessageRepository is a GORM implementation of MessageRepository
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts the message and its attachments, bumps the channel's
// last_message_at and optionally the sender's read cursor, in one
// transaction. The sender is always caught up on their own message.
func (r *GormMessageRepository) Create(message *models.Message, markSenderRead bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		err := tx.Model(&models.Channel{}).
			Where("id = ?", message.ChannelID).
			Update("last_message_at", message.CreatedAt).Error
		if err != nil {
			return err
		}

		if markSenderRead {
			err := tx.Model(&models.ChannelMember{}).
				Where("channel_id = ? AND user_id = ?", message.ChannelID, message.SenderID).
				Update("last_read_at", message.CreatedAt).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID finds a message by ID
func (r *GormMessageRepository) FindByID(id uint64, preload ...string) (*models.Message, error) {
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}

	var message models.Message
	if err := query.First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListBefore fetches up to limit messages older than the cursor, newest
// first. Message IDs are assigned monotonically so id order matches
// created_at order within a channel.
func (r *GormMessageRepository) ListBefore(channelID uint64, before *uint64, limit int) ([]models.Message, error) {
	query := r.db.
		Preload("Sender").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Preload("Attachments").
		Preload("Reactions").
		Where("channel_id = ?", channelID)

	if before != nil {
		query = query.Where("id < ?", *before)
	}

	var messages []models.Message
	err := query.Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// LastMessage returns the most recent message in a channel
func (r *GormMessageRepository) LastMessage(channelID uint64) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").
		Where("channel_id = ?", channelID).
		Order("id DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Update updates a message
func (r *GormMessageRepository) Update(message *models.Message) error {
	return r.db.Save(message).Error
}

// SoftDelete marks a message deleted while retaining the row
func (r *GormMessageRepository) SoftDelete(id uint64, deletedAt time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("deleted_at", deletedAt).Error
}

// CountAfter counts messages created strictly after the given time. A
// nil cursor counts the full channel history.
func (r *GormMessageRepository) CountAfter(channelID uint64, after *time.Time) (int64, error) {
	query := r.db.Model(&models.Message{}).Where("channel_id = ?", channelID)
	if after != nil {
		query = query.Where("created_at > ?", *after)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// AddReaction inserts a reaction row
func (r *GormMessageRepository) AddReaction(reaction *models.MessageReaction) error {
	return r.db.Create(reaction).Error
}

// FindReaction finds a specific reaction
func (r *GormMessageRepository) FindReaction(messageID uint64, emoji string, userID uint64) (*models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.Where("message_id = ? AND emoji = ? AND user_id = ?", messageID, emoji, userID).
		First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// RemoveReaction deletes the caller's own reaction
func (r *GormMessageRepository) RemoveReaction(messageID uint64, emoji string, userID uint64) error {
	return r.db.Where("message_id = ? AND emoji = ? AND user_id = ?", messageID, emoji, userID).
		Delete(&models.MessageReaction{}).Error
}
