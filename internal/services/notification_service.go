package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/notify"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"github.com/yukikurage/team-chat-api/internal/utils"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService fans a stored message out to the other channel
// members and serves each recipient's notification feed. Fan-out runs
// on the dispatch worker, never inline on the send path.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	channelRepo      repository.ChannelRepository
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notificationRepo repository.NotificationRepository, channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, userRepo repository.UserRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		channelRepo:      channelRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// DispatchMessage creates one notification per channel member except
// the sender. It is the notify.Queue handler; errors are returned for
// the queue to log and are never surfaced to the sender.
func (s *NotificationService) DispatchMessage(job notify.Job) error {
	message, err := s.messageRepo.FindByID(job.MessageID)
	if err != nil {
		return fmt.Errorf("failed to load message %d: %w", job.MessageID, err)
	}

	channel, err := s.channelRepo.FindByID(job.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to load channel %d: %w", job.ChannelID, err)
	}

	members, err := s.channelRepo.ListMembers(job.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to list members of channel %d: %w", job.ChannelID, err)
	}

	title := channel.Name
	if channel.Type == models.ChannelTypeDirect || title == "" {
		sender, err := s.userRepo.FindByID(job.SenderID)
		if err != nil {
			return fmt.Errorf("failed to load sender %d: %w", job.SenderID, err)
		}
		title = sender.Username
	}

	preview := utils.TruncatePreview(message.Content, constants.NotificationPreviewLength)

	channelID := channel.ID
	messageID := message.ID
	var notifications []models.Notification
	for _, member := range members {
		if member.UserID == job.SenderID {
			continue
		}
		notifications = append(notifications, models.Notification{
			UserID:    member.UserID,
			Type:      models.NotificationTypeNewMessage,
			Title:     title,
			Message:   preview,
			ChannelID: &channelID,
			MessageID: &messageID,
		})
	}

	if err := s.notificationRepo.CreateBatch(notifications); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListNotifications returns the actor's notifications, newest first.
func (s *NotificationService) ListNotifications(actor *models.User, unreadOnly bool, limit int) ([]models.Notification, int64, error) {
	notifications, err := s.notificationRepo.ListByUser(actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.notificationRepo.CountUnread(actor.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, unread, nil
}

// MarkRead marks one of the actor's notifications as read.
func (s *NotificationService) MarkRead(actor *models.User, notificationID uint64) error {
	if err := s.notificationRepo.MarkRead(notificationID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks all of the actor's notifications as read.
func (s *NotificationService) MarkAllRead(actor *models.User) error {
	if err := s.notificationRepo.MarkAllRead(actor.ID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
