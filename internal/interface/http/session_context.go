package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/ask-console/internal/domain/session"
)

const (
	sessionHandleKey  = "session_handle"
	sessionCreatedKey = "session_created"
	requestIDKey      = "request_id"
)

func setSession(c *gin.Context, handle *session.Handle, created bool) {
	c.Set(sessionHandleKey, handle)
	c.Set(sessionCreatedKey, created)
}

func getSession(c *gin.Context) (*session.Handle, bool) {
	value, ok := c.Get(sessionHandleKey)
	if !ok {
		return nil, false
	}
	handle, ok := value.(*session.Handle)
	return handle, ok && handle != nil
}

// sessionCreated reports whether this request bound the session controller.
func sessionCreated(c *gin.Context) bool {
	return c.GetBool(sessionCreatedKey)
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
