package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/saudeplus/agenda-assistant/internal/api"
	"github.com/saudeplus/agenda-assistant/internal/chat"
	"github.com/saudeplus/agenda-assistant/internal/config"
	"github.com/saudeplus/agenda-assistant/internal/db"
	"github.com/saudeplus/agenda-assistant/internal/procedure"
	"github.com/saudeplus/agenda-assistant/internal/redisclient"
	"github.com/saudeplus/agenda-assistant/internal/scheduling"
	"github.com/saudeplus/agenda-assistant/internal/session"
)

const version = "0.3.0"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Int("slot_horizon_days", cfg.SlotHorizonDays).
		Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	svc := scheduling.NewService(repo, cfg.SlotHorizonDays, logger)

	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)
	engine := chat.NewEngine(sessions, svc, logger)

	catalog := procedure.NewPgCatalog(pgPool)
	matcher := procedure.NewMatcher(catalog, cfg.MatchThreshold, logger)

	router := api.NewRouter(api.RouterConfig{
		Engine:  engine,
		Service: svc,
		Matcher: matcher,
		PgPool:  pgPool,
		Redis:   rdb,
		Logger:  logger,
		Env:     cfg.Env,
		Version: version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()

	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
