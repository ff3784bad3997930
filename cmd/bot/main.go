package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/app/command"
	"github.com/perspectron/perspectron/pkg/app/escalation"
	"github.com/perspectron/perspectron/pkg/app/policy"
	"github.com/perspectron/perspectron/pkg/app/regression"
	"github.com/perspectron/perspectron/pkg/config"
	"github.com/perspectron/perspectron/pkg/domain/blacklist"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	chatHandlers "github.com/perspectron/perspectron/pkg/handlers/chat"
	handlers "github.com/perspectron/perspectron/pkg/handlers/http"
	infraBlacklist "github.com/perspectron/perspectron/pkg/infra/blacklist"
	"github.com/perspectron/perspectron/pkg/infra/cache"
	wsChat "github.com/perspectron/perspectron/pkg/infra/chat/websocket"
	"github.com/perspectron/perspectron/pkg/infra/database"
	infraLogger "github.com/perspectron/perspectron/pkg/infra/logger"
	"github.com/perspectron/perspectron/pkg/infra/repository"
	"github.com/perspectron/perspectron/pkg/infra/scoring"
	"github.com/perspectron/perspectron/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	cfg := config.GetConfig()
	if cfg.Scoring.APIKey == "" {
		cfg.Scoring.APIKey = os.Getenv("PERSPECTIVE_API_KEY")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize redis")
		}
	}

	store, db := buildBlacklistStore(logger, cfg, redisClient)

	var escalationRepo moderation.Repository = repository.NewMemoryEscalationRepository()
	if redisClient != nil {
		escalationRepo = repository.NewRedisEscalationRepository(redisClient)
	}

	wsSettings, err := wsChat.SettingsFromMap(cfg.Chat.Settings)
	if err != nil {
		logger.WithError(err).Fatal("invalid chat transport settings")
	}
	transport := wsChat.NewTransport(logger, wsSettings)

	scorer := scoring.NewPerspectiveClient(logger, cfg.Scoring)
	policyCfg := policy.FromModerationConfig(cfg.Moderation)
	evaluator := policy.NewEvaluator(policyCfg)

	workflow := escalation.NewWorkflow(logger, transport, escalationRepo, cfg.Moderation.ModeratorChannelID)
	runner := regression.NewRunner(logger, scorer, evaluator, store, cfg.Moderation.CorpusPath, cfg.Moderation.TestDelay)
	dispatcher := command.NewDispatcher(logger, transport, scorer, evaluator, store, workflow, runner)

	eventHandlers := &chatHandlers.EventHandlers{
		Message: chatHandlers.NewMessageHandler(
			logger, transport, dispatcher, scorer, evaluator, store, workflow,
			cfg.Moderation.ExcludedChannelIDs, cfg.Moderation.ScoreReactions,
		),
		Reaction: chatHandlers.NewReactionHandler(logger, workflow),
	}

	adminServer := server.NewAdminServer(server.AdminServerDI{
		HandlerTransport: handlers.HandlerTransport{
			ListBlacklistHandler:   handlers.NewListBlacklistHandler(logger, store),
			AddBlacklistHandler:    handlers.NewAddBlacklistHandler(logger, store),
			DeleteBlacklistHandler: handlers.NewDeleteBlacklistHandler(logger, store),
			GetPolicyHandler:       handlers.NewGetPolicyHandler(logger, policyCfg),
		},
		Config: cfg,
		Logger: logger,
	})

	go func() {
		if err := adminServer.Run(); err != nil {
			logger.WithError(err).Fatal("admin server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transportDone := make(chan error, 1)
	go func() {
		transportDone <- transport.Run(ctx, eventHandlers)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-transportDone:
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("chat transport stopped")
		}
	}

	cancel()
	if err := adminServer.Shutdown(); err != nil {
		logger.WithError(err).Error("error shutting down admin server")
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("error closing database")
		}
	}
	logger.Info("stopped")
}

// buildBlacklistStore picks the most durable configured backend: postgres,
// then redis, then process memory. The returned DB is non-nil only for the
// postgres backend; the caller owns closing it.
func buildBlacklistStore(logger *logrus.Logger, cfg *config.Config, redisClient *redis.Client) (blacklist.Store, *database.DB) {
	if cfg.Database.Enabled {
		db, err := database.NewDB(logger, cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize database")
		}
		store, err := infraBlacklist.NewGormStore(db.DB)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize blacklist store")
		}
		return store, db
	}
	if redisClient != nil {
		return infraBlacklist.NewRedisStore(redisClient), nil
	}
	logger.Info("no persistent backend configured, blacklist kept in memory")
	return infraBlacklist.NewMemoryStore(), nil
}
