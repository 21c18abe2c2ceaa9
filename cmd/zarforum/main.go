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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/zarforum/zarforum/internal/app"
	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/auth"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/forum"
	"github.com/zarforum/zarforum/internal/observability"
	"github.com/zarforum/zarforum/internal/platform/blob"
	"github.com/zarforum/zarforum/internal/platform/cache"
	"github.com/zarforum/zarforum/internal/platform/db"
	"github.com/zarforum/zarforum/internal/profile"
	"github.com/zarforum/zarforum/internal/shared"
	"github.com/zarforum/zarforum/internal/transfers"
	"github.com/zarforum/zarforum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "zarforum_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	recorder := audit.NewRecorder()
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	authzRepo := authz.NewPGRepository(pool, recorder)
	authzService := authz.NewService(authzRepo)
	authzHandler := authz.NewHandler(logger, authzService)

	auditRepo := audit.NewPGRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	avatarStore := blob.NewLocalStore(cfg.AvatarDir, cfg.AvatarBaseURL)
	profileRepo := profile.NewPGRepository(pool, recorder)
	profileService := profile.NewService(profileRepo, authzService, avatarStore)
	profileHandler := profile.NewHandler(logger, profileService)

	forumRepo := forum.NewPGRepository(pool, recorder)
	forumService := forum.NewService(forumRepo, authzService, forum.NewRedisViewMarker(redisClient))
	forumHandler := forum.NewHandler(logger, forumService)

	transfersRepo := transfers.NewPGRepository(pool, recorder)
	transfersService := transfers.NewService(transfersRepo, authzService)
	transfersHandler := transfers.NewHandler(logger, transfersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		Actors:           profileService,
		Metrics:          metrics,
		AuthHandler:      authHandler,
		AuthzHandler:     authzHandler,
		AuditHandler:     auditHandler,
		ProfileHandler:   profileHandler,
		ForumHandler:     forumHandler,
		TransfersHandler: transfersHandler,
		JobsHandler:      jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
