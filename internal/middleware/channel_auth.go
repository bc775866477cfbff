package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/database"
	apierrors "github.com/yukikurage/team-chat-api/internal/errors"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"gorm.io/gorm"
)

// RequireChannelAccess checks that the user may access the channel in
// the :id parameter: a membership, or a privileged role on a system
// channel. Non-members get a 404 rather than a 403 to avoid leaking
// channel existence.
func RequireChannelAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		channelIDStr := c.Param("id")
		channelID, err := strconv.ParseUint(channelIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid channel ID")
			c.Abort()
			return
		}

		user, exists := GetCurrentUser(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var channel models.Channel
		if err := database.GetDB().First(&channel, channelID).Error; err != nil {
			apierrors.NotFound(c, "Channel not found")
			c.Abort()
			return
		}

		var member models.ChannelMember
		err = database.GetDB().
			Where("channel_id = ? AND user_id = ?", channelID, user.ID).
			First(&member).Error
		switch {
		case err == nil:
			c.Set(constants.ContextKeyChannelMember, member)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !channel.IsSystemChannel || !permissions.IsPrivileged(user.Role) {
				apierrors.NotFound(c, "Channel not found")
				c.Abort()
				return
			}
		default:
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyChannel, channel)
		c.Next()
	}
}

// GetChannel retrieves the channel loaded by RequireChannelAccess
func GetChannel(c *gin.Context) (*models.Channel, bool) {
	raw, exists := c.Get(constants.ContextKeyChannel)
	if !exists {
		return nil, false
	}
	channel, ok := raw.(models.Channel)
	if !ok {
		return nil, false
	}
	return &channel, true
}
