package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/notify"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"github.com/yukikurage/team-chat-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrMessageNotFound        = errors.New("message not found")
	ErrMessageContentRequired = errors.New("message content cannot be empty")
	ErrReplyDifferentChannel  = errors.New("cannot reply to a message in a different channel")
	ErrNotMessageSender       = errors.New("only the sender can edit this message")
	ErrMessageDeleteForbidden = errors.New("no permission to delete this message")
	ErrMessageAlreadyDeleted  = errors.New("message has been deleted")
	ErrChannelArchived        = errors.New("channel is archived")
	ErrDuplicateReaction      = errors.New("reaction already exists")
	ErrReactionNotFound       = errors.New("reaction not found")
)

// Dispatcher schedules deferred notification fan-out for a stored
// message. notify.Queue satisfies it.
type Dispatcher interface {
	Enqueue(job notify.Job)
}

// MessageService implements the message lifecycle: send, history,
// edit, soft delete and reactions.
type MessageService struct {
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	engine      *permissions.Engine
	blobs       storage.BlobStore
	dispatcher  Dispatcher
}

// NewMessageService creates a new MessageService. The dispatcher may
// be nil, in which case no notifications are scheduled.
func NewMessageService(channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, engine *permissions.Engine, blobs storage.BlobStore, dispatcher Dispatcher) *MessageService {
	return &MessageService{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		engine:      engine,
		blobs:       blobs,
		dispatcher:  dispatcher,
	}
}

// AttachmentView pairs a stored blob reference with its resolved URL.
type AttachmentView struct {
	BlobRef string `json:"blob_ref"`
	URL     string `json:"url"`
}

// MessageView is a message enriched for presentation. Soft-deleted
// messages are redacted for non-privileged readers: content replaced,
// sender and reply references cleared.
type MessageView struct {
	ID          uint64                   `json:"id"`
	ChannelID   uint64                   `json:"channel_id"`
	Content     string                   `json:"content"`
	Sender      *models.User             `json:"sender,omitempty"`
	ReplyTo     *MessageView             `json:"reply_to,omitempty"`
	Attachments []AttachmentView         `json:"attachments,omitempty"`
	Reactions   []models.MessageReaction `json:"reactions,omitempty"`
	EditedAt    *time.Time               `json:"edited_at,omitempty"`
	Deleted     bool                     `json:"deleted"`
	CreatedAt   time.Time                `json:"created_at"`
}

// MessagePage is one page of channel history, oldest first.
type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	HasMore    bool          `json:"has_more"`
	NextCursor *uint64       `json:"next_cursor,omitempty"`
}

// SendMessageInput represents a new message.
type SendMessageInput struct {
	Content     string
	ReplyToID   *uint64
	Attachments []string
}

// SendMessage stores a message and schedules notification fan-out.
// Dispatch runs after the write commits and its failure never fails
// the send.
func (s *MessageService) SendMessage(actor *models.User, channelID uint64, input SendMessageInput) (*MessageView, error) {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsArchived() {
		return nil, ErrChannelArchived
	}

	member, err := resolveChannelAccess(s.channelRepo, channel, actor)
	if err != nil {
		return nil, err
	}

	if input.Content == "" {
		return nil, ErrMessageContentRequired
	}

	if input.ReplyToID != nil {
		parent, err := s.messageRepo.FindByID(*input.ReplyToID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, fmt.Errorf("failed to find reply target: %w", err)
		}
		if parent.ChannelID != channelID {
			return nil, ErrReplyDifferentChannel
		}
	}

	message := &models.Message{
		ChannelID: channelID,
		SenderID:  actor.ID,
		Content:   input.Content,
		ReplyToID: input.ReplyToID,
		CreatedAt: time.Now(),
	}
	for _, ref := range input.Attachments {
		message.Attachments = append(message.Attachments, models.MessageAttachment{BlobRef: ref})
	}

	// The sender's own read cursor only advances when they hold a
	// membership row; a privileged sender on a system channel has none.
	if err := s.messageRepo.Create(message, member != nil); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(notify.Job{
			MessageID: message.ID,
			ChannelID: channelID,
			SenderID:  actor.ID,
		})
	}

	message.Sender = *actor
	view := s.toView(actor, message)
	return &view, nil
}

// GetMessages returns one page of channel history. Pages are
// chronological (oldest first); the cursor walks backwards through
// older history. Chaining two calls covers every message exactly once.
func (s *MessageService) GetMessages(actor *models.User, channelID uint64, limit int, before *uint64) (*MessagePage, error) {
	channel, err := s.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	if _, err := resolveChannelAccess(s.channelRepo, channel, actor); err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = constants.DefaultMessagePageSize
	}

	// Fetch one extra row to detect whether older history remains.
	messages, err := s.messageRepo.ListBefore(channelID, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// Reverse the newest-first fetch so the page reads oldest first.
	views := make([]MessageView, len(messages))
	for i, msg := range messages {
		m := msg
		views[len(messages)-1-i] = s.toView(actor, &m)
	}

	page := &MessagePage{
		Messages: views,
		HasMore:  hasMore,
	}
	if hasMore && len(views) > 0 {
		cursor := views[0].ID
		page.NextCursor = &cursor
	}
	return page, nil
}

// EditMessage updates a message's content. Only the sender may edit,
// and never after deletion.
func (s *MessageService) EditMessage(actor *models.User, messageID uint64, content string) (*MessageView, error) {
	message, err := s.findMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != actor.ID {
		return nil, ErrNotMessageSender
	}
	if message.IsDeleted() {
		return nil, ErrMessageAlreadyDeleted
	}
	if content == "" {
		return nil, ErrMessageContentRequired
	}

	now := time.Now()
	message.Content = content
	message.EditedAt = &now
	if err := s.messageRepo.Update(message); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	message.Sender = *actor
	view := s.toView(actor, message)
	return &view, nil
}

// DeleteMessage soft-deletes a message. The sender may always delete
// their own; otherwise the permission engine's ownership-scoped
// messages:delete decides.
func (s *MessageService) DeleteMessage(actor *models.User, messageID uint64) error {
	message, err := s.findMessage(messageID)
	if err != nil {
		return err
	}
	if message.IsDeleted() {
		return ErrMessageAlreadyDeleted
	}

	allowed := s.engine.HasPermission(actor.Role, "messages:delete", &permissions.OwnershipContext{
		UserID:  actor.ID,
		OwnerID: message.SenderID,
	})
	if !allowed {
		return ErrMessageDeleteForbidden
	}

	if err := s.messageRepo.SoftDelete(messageID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddReaction records the actor's reaction on a message. Duplicate
// (emoji, user) pairs are rejected.
func (s *MessageService) AddReaction(actor *models.User, messageID uint64, emoji string) error {
	message, err := s.findMessage(messageID)
	if err != nil {
		return err
	}
	if message.IsDeleted() {
		return ErrMessageAlreadyDeleted
	}
	if err := s.requireMembership(actor, message.ChannelID); err != nil {
		return err
	}

	if _, err := s.messageRepo.FindReaction(messageID, emoji, actor.ID); err == nil {
		return ErrDuplicateReaction
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to verify reaction: %w", err)
	}

	reaction := &models.MessageReaction{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    actor.ID,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.AddReaction(reaction); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

// RemoveReaction removes the actor's own reaction.
func (s *MessageService) RemoveReaction(actor *models.User, messageID uint64, emoji string) error {
	message, err := s.findMessage(messageID)
	if err != nil {
		return err
	}
	if err := s.requireMembership(actor, message.ChannelID); err != nil {
		return err
	}

	if _, err := s.messageRepo.FindReaction(messageID, emoji, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReactionNotFound
		}
		return fmt.Errorf("failed to find reaction: %w", err)
	}

	if err := s.messageRepo.RemoveReaction(messageID, emoji, actor.ID); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// toView enriches a message for the given reader, redacting
// soft-deleted content unless the reader holds a privileged role.
func (s *MessageService) toView(reader *models.User, message *models.Message) MessageView {
	view := MessageView{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		CreatedAt: message.CreatedAt,
		EditedAt:  message.EditedAt,
		Deleted:   message.IsDeleted(),
	}

	if message.IsDeleted() && !permissions.IsPrivileged(reader.Role) {
		view.Content = constants.RedactedMessageContent
		return view
	}

	view.Content = message.Content
	if message.Sender.ID != 0 {
		sender := message.Sender
		view.Sender = &sender
	}
	if message.ReplyTo != nil {
		reply := s.toView(reader, message.ReplyTo)
		view.ReplyTo = &reply
	}
	for _, a := range message.Attachments {
		att := AttachmentView{BlobRef: a.BlobRef}
		if s.blobs != nil {
			att.URL = s.blobs.ResolveURL(a.BlobRef)
		}
		view.Attachments = append(view.Attachments, att)
	}
	view.Reactions = message.Reactions

	return view
}

func (s *MessageService) requireMembership(actor *models.User, channelID uint64) error {
	if _, err := s.channelRepo.FindMember(channelID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotChannelMember
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}
	return nil
}

func (s *MessageService) findChannel(channelID uint64) (*models.Channel, error) {
	channel, err := s.channelRepo.FindByID(channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}
	return channel, nil
}

func (s *MessageService) findMessage(messageID uint64) (*models.Message, error) {
	message, err := s.messageRepo.FindByID(messageID, "Sender", "Attachments", "Reactions")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return message, nil
}
