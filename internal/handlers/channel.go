package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-chat-api/internal/dto"
	apierrors "github.com/yukikurage/team-chat-api/internal/errors"
	"github.com/yukikurage/team-chat-api/internal/middleware"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/services"
)

// ChannelHandler coordinates channel lifecycle HTTP handlers.
type ChannelHandler struct {
	channelService *services.ChannelService
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(channelService *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
	}
}

// CreateChannel creates a channel of any type.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateChannelRequest struct {
		Type            models.ChannelType `json:"type" binding:"required"`
		Name            string             `json:"name"`
		OrganizationID  *uint64            `json:"organization_id"`
		IsSystemChannel bool               `json:"is_system_channel"`
		Participants    []uint64           `json:"participants"`
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	channel, err := h.channelService.CreateChannel(user, services.CreateChannelInput{
		Type:            req.Type,
		Name:            req.Name,
		OrganizationID:  req.OrganizationID,
		IsSystemChannel: req.IsSystemChannel,
		Participants:    req.Participants,
	})
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChannelDTO(*channel))
}

// GetOrCreateDirectMessage returns the direct channel with another
// user, creating it on first use.
func (h *ChannelHandler) GetOrCreateDirectMessage(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	otherID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	channel, err := h.channelService.GetOrCreateDirectMessage(user, otherID)
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChannelDTO(*channel))
}

// ListChannels returns the channels visible to the user.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	input := services.ListChannelsInput{}
	if raw := c.Query("type"); raw != "" {
		channelType := models.ChannelType(raw)
		input.Type = &channelType
	}

	summaries, err := h.channelService.ListChannels(user, input)
	if err != nil {
		respondChannelError(c, err)
		return
	}

	dtos := make([]dto.ChannelSummaryDTO, len(summaries))
	for i, summary := range summaries {
		dtos[i] = dto.ToChannelSummaryDTO(summary)
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": dtos,
	})
}

// GetChannel returns channel details.
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid channel ID")
		return
	}

	channel, member, err := h.channelService.GetChannel(user, channelID)
	if err != nil {
		respondChannelError(c, err)
		return
	}

	response := gin.H{
		"channel": dto.ToChannelDTO(*channel),
	}
	if member != nil {
		response["your_role"] = member.Role
	}

	c.JSON(http.StatusOK, response)
}

// UpdateChannel renames or archives a channel.
func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid channel ID")
		return
	}

	type UpdateChannelRequest struct {
		Name     *string `json:"name"`
		Archived *bool   `json:"archived"`
	}

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	channel, err := h.channelService.UpdateChannel(user, channelID, services.UpdateChannelInput{
		Name:     req.Name,
		Archived: req.Archived,
	})
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChannelDTO(*channel))
}

// DeleteChannel removes a channel and everything in it.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid channel ID")
		return
	}

	if err := h.channelService.DeleteChannel(user, channelID); err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Channel deleted successfully",
	})
}

func respondChannelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChannelNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrChannelNameRequired),
		errors.Is(err, services.ErrInvalidChannelType),
		errors.Is(err, services.ErrDirectParticipants),
		errors.Is(err, services.ErrDirectWithSelf):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrSystemChannelRestricted),
		errors.Is(err, services.ErrChannelCreateRestricted),
		errors.Is(err, services.ErrNotInOrganization),
		errors.Is(err, services.ErrNotChannelMember),
		errors.Is(err, services.ErrChannelUpdateRestricted),
		errors.Is(err, services.ErrChannelDeleteRestricted):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
