package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrobolivia/farm-platform/internal/api"
	"github.com/agrobolivia/farm-platform/internal/core/service"
	"github.com/agrobolivia/farm-platform/internal/infrastructure/config"
	mongodb "github.com/agrobolivia/farm-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/agrobolivia/farm-platform/internal/infrastructure/db/redis"
	"github.com/agrobolivia/farm-platform/internal/infrastructure/queue"
	"github.com/agrobolivia/farm-platform/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(shutdownCtx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	redisClient, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer redisClient.Close()

	// Repositories.
	userRepo := mongodb.NewUserRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)

	// Audit pipeline: async, fire-and-forget. Drained on shutdown so
	// buffered events still land in the store.
	dispatcher := queue.NewAuditDispatcher(cfg.Auth.AuditWorkers, auditRepo, log)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	// Rate limiters: a strict window for credential attempts, a loose
	// one for the general API surface.
	authLimiter := redisdb.NewLimiter(redisClient, "auth", cfg.Auth.AuthRateMax, cfg.Auth.AuthRateWindow)
	apiLimiter := redisdb.NewLimiter(redisClient, "api", cfg.Auth.APIRateMax, cfg.Auth.APIRateWindow)

	// Services.
	tokens := service.NewTokenService(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTRefreshSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	sessions := service.NewSessionRegistry(sessionRepo, cfg.Auth.RefreshTokenTTL)
	twoFactor := service.NewTwoFactorService(
		userRepo,
		authLimiter,
		redisdb.NewReplayGuard(redisClient),
		dispatcher,
		cfg.Auth.TOTPIssuer,
	)
	authService := service.NewAuthService(
		userRepo,
		sessions,
		tokens,
		twoFactor,
		authLimiter,
		redisdb.NewChallengeStore(redisClient),
		dispatcher,
		log,
	)
	auditService := service.NewAuditService(auditRepo, sessions)

	e := api.NewRouter(api.Deps{
		Auth:       authService,
		TwoFactor:  twoFactor,
		Tokens:     tokens,
		Sessions:   sessions,
		Audit:      auditService,
		Recorder:   dispatcher,
		APILimiter: apiLimiter,
		Mongo:      mongoClient,
		Redis:      redisClient,
		Log:        log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
