package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/team-chat-api/internal/constants"
)

func cursorContext(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestGetCursorParamsDefaults(t *testing.T) {
	params := GetCursorParams(cursorContext(""))
	assert.Equal(t, constants.DefaultMessagePageSize, params.Limit)
	assert.Nil(t, params.Before)
}

func TestGetCursorParamsExplicit(t *testing.T) {
	params := GetCursorParams(cursorContext("limit=25&cursor=900"))
	assert.Equal(t, 25, params.Limit)
	if assert.NotNil(t, params.Before) {
		assert.Equal(t, uint64(900), *params.Before)
	}
}

func TestGetCursorParamsClampsLimit(t *testing.T) {
	for _, raw := range []string{"limit=0", "limit=-5", "limit=1000", "limit=abc"} {
		params := GetCursorParams(cursorContext(raw))
		assert.Equal(t, constants.DefaultMessagePageSize, params.Limit, raw)
	}
}

func TestGetCursorParamsIgnoresBadCursor(t *testing.T) {
	params := GetCursorParams(cursorContext("cursor=notanumber"))
	assert.Nil(t, params.Before)
}
