package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/saudeplus/agenda-assistant/internal/chat"
	"github.com/saudeplus/agenda-assistant/internal/procedure"
	"github.com/saudeplus/agenda-assistant/internal/scheduling"
)

type RouterConfig struct {
	Engine  *chat.Engine
	Service *scheduling.Service
	Matcher *procedure.Matcher
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler(cfg.Engine))

		r.Get("/specialties", listSpecialtiesHandler(cfg.Service))
		r.Get("/doctors", listDoctorsHandler(cfg.Service))
		r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Service))
		r.Post("/bookings", createBookingHandler(cfg.Service))

		r.Post("/referrals/analyze", analyzeReferralHandler(cfg.Matcher))
	})

	return r
}
