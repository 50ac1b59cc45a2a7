package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ask-console/internal/domain/session"
	"github.com/yanqian/ask-console/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *PageHandler, manager *session.Manager, csrf *CSRFTokens, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	httpLogger := logger.With("component", "http.router")
	cookie := newSessionCookie(cfg.Session.CookieName, cfg.Session.TTL)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(httpLogger),
		errorHandlingMiddleware(httpLogger),
	)

	router.GET("/healthz", handler.Health)

	limit := rateLimitMiddleware(cfg.HTTP.RateLimit, httpLogger)
	withSession := sessionMiddleware(manager, cookie, httpLogger)
	router.GET("/", limit, withSession, handler.Index)

	ui := router.Group("/ui", limit, withSession)
	{
		ui.GET("/response", handler.Response)
		ui.GET("/history", handler.History)

		protected := ui.Group("", csrfMiddleware(csrf))
		protected.POST("/ask", handler.Ask)
		protected.POST("/keypress", handler.KeyPress)
		protected.POST("/response-type", handler.SelectResponseType)
		protected.POST("/reload/config", handler.ReloadConfig)
		protected.POST("/reload/data", handler.ReloadData)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
