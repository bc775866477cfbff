package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-chat-api/internal/errors"
	"github.com/yukikurage/team-chat-api/internal/middleware"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/services"
	"github.com/yukikurage/team-chat-api/internal/utils"
)

// MessageHandler coordinates message HTTP handlers.
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// SendMessage posts a message to a channel.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	type SendMessageRequest struct {
		Content     string   `json:"content"`
		ReplyToID   *uint64  `json:"reply_to_id"`
		Attachments []string `json:"attachments"`
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	view, err := h.messageService.SendMessage(user, channelID, services.SendMessageInput{
		Content:     req.Content,
		ReplyToID:   req.ReplyToID,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetMessages returns one page of channel history, oldest first.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	params := utils.GetCursorParams(c)

	page, err := h.messageService.GetMessages(user, channelID, params.Limit, params.Before)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// EditMessage replaces a message's content.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	user, messageID, ok := currentUserAndMessageID(c)
	if !ok {
		return
	}

	type EditMessageRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	view, err := h.messageService.EditMessage(user, messageID, req.Content)
	if err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteMessage soft deletes a message.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	user, messageID, ok := currentUserAndMessageID(c)
	if !ok {
		return
	}

	if err := h.messageService.DeleteMessage(user, messageID); err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Message deleted successfully",
	})
}

// AddReaction attaches an emoji reaction to a message.
func (h *MessageHandler) AddReaction(c *gin.Context) {
	user, messageID, ok := currentUserAndMessageID(c)
	if !ok {
		return
	}

	type ReactionRequest struct {
		Emoji string `json:"emoji" binding:"required"`
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.messageService.AddReaction(user, messageID, req.Emoji); err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Reaction added",
	})
}

// RemoveReaction removes the caller's reaction from a message.
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	user, messageID, ok := currentUserAndMessageID(c)
	if !ok {
		return
	}

	emoji := c.Param("emoji")
	if emoji == "" {
		apierrors.BadRequest(c, "Emoji is required")
		return
	}

	if err := h.messageService.RemoveReaction(user, messageID, emoji); err != nil {
		respondMessageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reaction removed",
	})
}

func currentUserAndMessageID(c *gin.Context) (*models.User, uint64, bool) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return nil, 0, false
	}

	messageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid message ID")
		return nil, 0, false
	}

	return user, messageID, true
}

func respondMessageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChannelNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrReactionNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotChannelMember),
		errors.Is(err, services.ErrNotMessageSender),
		errors.Is(err, services.ErrMessageDeleteForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrMessageContentRequired),
		errors.Is(err, services.ErrReplyDifferentChannel):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDuplicateReaction):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrChannelArchived),
		errors.Is(err, services.ErrMessageAlreadyDeleted):
		apierrors.InvalidOperation(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
