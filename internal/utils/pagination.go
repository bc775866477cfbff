package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-chat-api/internal/constants"
)

// CursorParams holds cursor pagination parameters for message history.
type CursorParams struct {
	Limit  int
	Before *uint64
}

// GetCursorParams extracts and clamps cursor pagination parameters
// from the request.
func GetCursorParams(c *gin.Context) CursorParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultMessagePageSize)))
	if limit < 1 || limit > constants.MaxMessagePageSize {
		limit = constants.DefaultMessagePageSize
	}

	params := CursorParams{Limit: limit}
	if raw := c.Query("cursor"); raw != "" {
		if cursor, err := strconv.ParseUint(raw, 10, 64); err == nil {
			params.Before = &cursor
		}
	}
	return params
}
