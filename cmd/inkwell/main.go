package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkwell-blog/inkwell/internal/app"
	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/blog/categories"
	"github.com/inkwell-blog/inkwell/internal/blog/comments"
	"github.com/inkwell-blog/inkwell/internal/blog/posts"
	"github.com/inkwell-blog/inkwell/internal/blog/tags"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/cache"
	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/ratelimit"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/users"
	"github.com/inkwell-blog/inkwell/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
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

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	authService := auth.NewService(auth.ServiceParams{
		Repo:     auth.NewRepository(pool),
		Hasher:   auth.NewHasher(0),
		Codec:    auth.NewTokenCodec(cfg.TokenSecret, cfg.TokenTTL),
		Registry: auth.NewSessionRegistry(redisClient),
		Resets:   auth.NewResetTokens(redisClient, cfg.ResetTokenTTL),
		Mailer:   jobClient,
		Auditor:  auditLogger,
		Logger:   logger,
	})

	limiter := ratelimit.NewLimiter(redisClient, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin: {Requests: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
		ratelimit.ClassAPI:   {Requests: cfg.APIRateLimit, Window: cfg.APIRateWindow},
	})
	rateMW := ratelimit.Middleware{Limiter: limiter, Logger: logger, Metrics: metrics}
	authMW := auth.Middleware{Service: authService, Logger: logger, Metrics: metrics}
	rbacMW := rbac.Middleware{Logger: logger}
	gate := app.Gate(authMW, rateMW)

	authHandler := auth.NewHandler(logger, authService, rateMW.Limit(ratelimit.ClassLogin))

	postsHandler := posts.NewHandler(logger, posts.NewService(posts.NewRepository(pool), posts.NewLikeStore(redisClient)), gate, rbacMW)
	categoriesHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)), gate, rbacMW)
	tagsHandler := tags.NewHandler(logger, tags.NewService(tags.NewRepository(pool)), gate, rbacMW)
	commentsHandler := comments.NewHandler(logger, comments.NewService(comments.NewRepository(pool)), gate, rbacMW)

	usersService := users.NewService(logger, users.NewRepository(pool), authService)
	usersHandler := users.NewHandler(logger, usersService, gate, rbacMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)
	jobs.RegisterQueueMetrics(metrics.Registerer(), inspector)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMW,
		RateMiddleware:     rateMW,
		RBACMiddleware:     rbacMW,
		PostsHandler:       postsHandler,
		CategoriesHandler:  categoriesHandler,
		TagsHandler:        tagsHandler,
		CommentsHandler:    commentsHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(),
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
