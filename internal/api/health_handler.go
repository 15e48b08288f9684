package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-verifier/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the worker.
type HealthStatus struct {
	Status    string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime    string                    `json:"uptime"`
	LastRunAt *time.Time                `json:"last_run_at,omitempty"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports on the database, Redis and the internal ticker.
// Any dependency can be nil.
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	worker      WorkerStatus
	startTime   time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, worker WorkerStatus) *HealthChecker {
	return &HealthChecker{
		db:          db,
		redisClient: redisClient,
		worker:      worker,
		startTime:   time.Now(),
	}
}

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]ComponentCheck{
		"database": hc.checkDatabase(r.Context()),
		"redis":    hc.checkRedis(r.Context()),
		"worker":   hc.checkWorker(),
	}

	status := HealthStatus{
		Status: determineOverallStatus(checks),
		Uptime: time.Since(hc.startTime).Truncate(time.Second).String(),
		Checks: checks,
	}
	if hc.worker != nil {
		if last := hc.worker.LastRunAt(); !last.IsZero() {
			status.LastRunAt = &last
		}
	}
	httputil.OK(w, status)
}

// HandleLiveness returns 200 while the process serves requests.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "alive"})
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.db.PingContext(pingCtx)
	return latencyCheck(time.Since(start), time.Second, err)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: "not_configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.redisClient.Ping(pingCtx).Err()
	return latencyCheck(time.Since(start), 500*time.Millisecond, err)
}

func (hc *HealthChecker) checkWorker() ComponentCheck {
	if hc.worker == nil {
		return ComponentCheck{Status: "not_configured", Message: "ticker disabled, POST /run only"}
	}
	if !hc.worker.IsHealthy() {
		return ComponentCheck{Status: "degraded", Message: "last tick failed"}
	}
	return ComponentCheck{Status: "up"}
}

func latencyCheck(latency, slow time.Duration, err error) ComponentCheck {
	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	if latency > slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// determineOverallStatus: the database is critical, everything else only
// degrades.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if checks["database"].Status == "down" {
		return "unhealthy"
	}
	for name, c := range checks {
		if name == "database" {
			continue
		}
		if c.Status == "down" || c.Status == "degraded" {
			return "degraded"
		}
	}
	if checks["database"].Status == "degraded" {
		return "degraded"
	}
	return "healthy"
}
