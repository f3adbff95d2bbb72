package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cristhian-fs/slack-clone/internal/api"
	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/config"
	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	redisclient "github.com/cristhian-fs/slack-clone/internal/redis"
	"github.com/cristhian-fs/slack-clone/internal/service"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
	"github.com/cristhian-fs/slack-clone/internal/storage"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("postgres", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		fatal("redis", err)
	}
	defer rdb.Close()

	healthChecks := map[string]api.HealthCheck{
		"postgres": pool.Ping,
		"redis":    rdb.Ping,
	}

	// A nil FileStorage disables attachments; never assign a nil *storage.Store.
	var files service.FileStorage
	if cfg.StorageEnabled() {
		store, err := storage.Open(ctx, storage.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			fatal("storage", err)
		}
		files = store
		healthChecks["storage"] = store.Ping
	} else {
		slog.Warn("attachment storage not configured, uploads disabled")
	}

	sf, err := snowflake.NewGenerator(1)
	if err != nil {
		fatal("snowflake", err)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer), auth.WithLeeway(30*time.Second))

	// --- Repositories ---

	channels := database.NewChannelRepository(pool)
	conversations := database.NewConversationRepository(pool)
	members := database.NewMemberRepository(pool)
	messages := database.NewMessageRepository(pool)
	reactions := database.NewReactionRepository(pool)
	uploads := database.NewUploadRepository(pool)

	// --- Gateway ---

	gwManager := gateway.NewManager(tokenSvc, members, gateway.WithAllowedOrigins(cfg.AllowedOrigins...))

	// --- Services ---

	channelSvc := service.NewChannelService(channels, members)
	conversationSvc := service.NewConversationService(conversations, members, sf, gwManager)
	messageSvc := service.NewMessageService(messages, reactions, channels, conversations, members, uploads, files, sf, gwManager)
	reactionSvc := service.NewReactionService(reactions, messages, channels, conversations, members, gwManager)
	uploadSvc := service.NewUploadService(uploads, rdb, files, cfg.PublicURL, cfg.UploadURLTTL)

	deps := &api.Dependencies{
		Channels:      api.NewChannelHandler(channelSvc),
		Conversations: api.NewConversationHandler(conversationSvc),
		Messages:      api.NewMessageHandler(messageSvc),
		Reactions:     api.NewReactionHandler(reactionSvc),
		Uploads:       api.NewUploadHandler(uploadSvc),
		Gateway:       gwManager,
		TokenService:  tokenSvc,
		RateLimiter:   rdb,
		HealthChecks:  healthChecks,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("slack-clone starting", "addr", cfg.ServerAddr, "public_url", cfg.PublicURL)
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func fatal(component string, err error) {
	slog.Error("startup failed", "component", component, "error", err)
	os.Exit(1)
}
