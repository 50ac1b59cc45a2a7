package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sessionCookie struct {
	name   string
	maxAge int
}

func newSessionCookie(name string, ttl time.Duration) sessionCookie {
	return sessionCookie{name: name, maxAge: int(ttl / time.Second)}
}

func (s sessionCookie) set(c *gin.Context, id string) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, id, s.maxAge, "/", "", secure, true)
}

// read returns the session id carried by the request, if it is well formed.
func (s sessionCookie) read(c *gin.Context) (string, bool) {
	value, err := c.Cookie(s.name)
	if err != nil || value == "" {
		return "", false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
