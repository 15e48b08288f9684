package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-verifier/internal/service/verification"
)

// Ticker runs one reconciliation pass.
type Ticker interface {
	Tick(ctx context.Context) (verification.TickSummary, error)
}

// WorkerStatus is the view of the internal ticker exposed on /health.
type WorkerStatus interface {
	IsHealthy() bool
	LastRunAt() time.Time
}

// Deps are the collaborators the trigger surface needs. Everything except
// Ticker may be nil.
type Deps struct {
	Ticker         Ticker
	DB             *sql.DB
	Redis          *redis.Client
	Worker         WorkerStatus
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	// RunTimeout bounds a tick started through POST /run.
	RunTimeout time.Duration
}

// NewRouter builds the HTTP surface: POST /run, GET /health, GET /metrics.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	run := &RunHandler{ticker: d.Ticker, timeout: d.RunTimeout}
	health := NewHealthChecker(d.DB, d.Redis, d.Worker)

	r.Post("/run", run.ServeHTTP)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
