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

// MembershipHandler coordinates channel membership HTTP handlers.
type MembershipHandler struct {
	membershipService *services.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{
		membershipService: membershipService,
	}
}

// ListMembers lists a channel's members.
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(user, channelID)
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	dtos := make([]dto.ChannelMemberDTO, len(members))
	for i, member := range members {
		dtos[i] = dto.ToChannelMemberDTO(member)
	}

	c.JSON(http.StatusOK, gin.H{
		"members": dtos,
	})
}

// AddMember invites a user into the channel.
func (h *MembershipHandler) AddMember(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.membershipService.AddMember(user, channelID, req.UserID)
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChannelMemberDTO(*member))
}

// RemoveMember removes a member from the channel.
func (h *MembershipHandler) RemoveMember(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.membershipService.RemoveMember(user, channelID, targetID); err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// UpdateMemberRole changes a member's channel role.
func (h *MembershipHandler) UpdateMemberRole(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type UpdateRoleRequest struct {
		Role models.ChannelRole `json:"role" binding:"required"`
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.membershipService.UpdateMemberRole(user, channelID, targetID, req.Role)
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChannelMemberDTO(*member))
}

// JoinChannel adds the caller to a public channel.
func (h *MembershipHandler) JoinChannel(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	member, err := h.membershipService.JoinChannel(user, channelID)
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChannelMemberDTO(*member))
}

// LeaveChannel removes the caller's own membership.
func (h *MembershipHandler) LeaveChannel(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	if err := h.membershipService.LeaveChannel(user, channelID); err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Left channel successfully",
	})
}

// MarkChannelAsRead advances the caller's read cursor.
func (h *MembershipHandler) MarkChannelAsRead(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	if err := h.membershipService.MarkChannelAsRead(user, channelID); err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Channel marked as read",
	})
}

// GetUnreadCount returns the caller's unread message count.
func (h *MembershipHandler) GetUnreadCount(c *gin.Context) {
	user, channelID, ok := currentUserAndChannelID(c)
	if !ok {
		return
	}

	count, err := h.membershipService.GetUnreadCount(user, channelID)
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

func currentUserAndChannelID(c *gin.Context) (*models.User, uint64, bool) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return nil, 0, false
	}

	channelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid channel ID")
		return nil, 0, false
	}

	return user, channelID, true
}

func respondMembershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChannelNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyChannelMember):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrMembershipRestricted),
		errors.Is(err, services.ErrNotInOrganization),
		errors.Is(err, services.ErrNotChannelMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidChannelRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDirectChannelMembers),
		errors.Is(err, services.ErrJoinNotPublic),
		errors.Is(err, services.ErrCannotLeaveDirect),
		errors.Is(err, services.ErrCannotDemoteOwner):
		apierrors.InvalidOperation(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
