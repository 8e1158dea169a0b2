package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/auth"
	"quiz-share-service/internal/config"
	"quiz-share-service/internal/infra/memory"
	pgstore "quiz-share-service/internal/infra/postgres"
	redisinfra "quiz-share-service/internal/infra/redis"
	transport "quiz-share-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// storage is the store pair selected by configuration.
type storage interface {
	app.QuizStore
	app.UserStore
}

// openStore returns the Postgres store when a database is configured and the
// in-memory one otherwise. The returned close function is never nil.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, func(), error) {
	if cfg.Postgres.URL == "" {
		logger.Warn("no postgres url configured, using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	return pgstore.NewStore(pool), pool.Close, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient := newRedisClient(cfg)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	feedTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var views app.QuizViewCache
	var feeds app.FeedRepository
	if redisClient != nil {
		defer redisClient.Close()
		views = redisinfra.NewViewCache(redisClient, store, cacheTTL)
		feeds = redisinfra.NewFeedStore(redisClient, feedTTL)
	} else {
		views = memory.NewViewCache(store, cacheTTL)
		feeds = memory.NewFeedStore()
	}

	reports := app.NewReportService(store, feeds)
	quizzes := app.NewQuizService(store, views, logger)
	takes := app.NewTakeService(store, views, reports, logger)
	users := app.NewUserService(store, views, logger)

	router := transport.NewRouter(transport.RouterConfig{
		Quizzes:      transport.NewQuizHandler(quizzes, takes, reports, logger),
		Live:         transport.NewWSHandler(reports, logger),
		Auth:         auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Users:        users,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
