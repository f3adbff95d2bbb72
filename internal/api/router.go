package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Channels      *ChannelHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Reactions     *ReactionHandler
	Uploads       *UploadHandler
	Gateway       *gateway.Manager

	TokenService *auth.TokenService
	RateLimiter  RateLimiter
	HealthChecks map[string]HealthCheck
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	e.Use(metrics.Middleware())

	e.GET("/health", healthHandler(deps.HealthChecks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	v1 := e.Group("/api/v1")

	// Upload targets carry a one-time token in place of a bearer token.
	v1.POST("/uploads/:token", deps.Uploads.Upload,
		RateLimitMiddleware(deps.RateLimiter, UploadPolicy),
	)

	// Everything else requires a bearer token.
	protected := v1.Group("", deps.TokenService.Middleware(),
		RateLimitMiddleware(deps.RateLimiter, APIPolicy),
	)

	// Channels
	protected.GET("/channels/:id", deps.Channels.GetChannel)

	// Conversations
	protected.POST("/workspaces/:workspace_id/conversations", deps.Conversations.OpenConversation)
	protected.GET("/workspaces/:workspace_id/conversations", deps.Conversations.ListConversations)
	protected.GET("/conversations/:conversation_id", deps.Conversations.GetConversation)

	// Messages
	protected.POST("/channels/:id/messages", deps.Messages.CreateMessage)
	protected.GET("/channels/:id/messages", deps.Messages.GetMessages)
	protected.PATCH("/channels/:id/messages/:message_id", deps.Messages.UpdateMessage)
	protected.DELETE("/channels/:id/messages/:message_id", deps.Messages.DeleteMessage)
	protected.POST("/conversations/:conversation_id/messages", deps.Messages.CreateMessage)
	protected.GET("/conversations/:conversation_id/messages", deps.Messages.GetMessages)
	protected.PATCH("/conversations/:conversation_id/messages/:message_id", deps.Messages.UpdateMessage)
	protected.DELETE("/conversations/:conversation_id/messages/:message_id", deps.Messages.DeleteMessage)
	protected.GET("/messages/:message_id", deps.Messages.GetMessage)

	// Threads
	protected.GET("/channels/:id/messages/:message_id/thread", deps.Messages.GetThread)
	protected.GET("/conversations/:conversation_id/messages/:message_id/thread", deps.Messages.GetThread)

	// Reactions
	protected.POST("/channels/:id/messages/:message_id/reactions", deps.Reactions.Toggle)
	protected.POST("/conversations/:conversation_id/messages/:message_id/reactions", deps.Reactions.Toggle)

	// Uploads
	protected.POST("/upload-url", deps.Uploads.GenerateUploadURL)
}

func healthHandler(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				slog.Warn("health check failed", "dependency", name, "error", err)
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		return c.JSON(code, status)
	}
}
