package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/lead-verifier/internal/pkg/logger"
	"github.com/ignite/lead-verifier/internal/service/verification"
)

// DefaultTickTimeout bounds one reconciliation tick started by the ticker.
const DefaultTickTimeout = 10 * time.Minute

// Ticker runs one reconciliation pass.
type Ticker interface {
	Tick(ctx context.Context) (verification.TickSummary, error)
}

// ReconcileWorker invokes a Ticker on a fixed interval. It is an alternative
// to the external scheduler hitting POST /run; both may run at once.
type ReconcileWorker struct {
	ticker       Ticker
	interval     time.Duration
	tickTimeout  time.Duration
	initialDelay time.Duration

	mu          sync.RWMutex
	cancel      context.CancelFunc
	done        chan struct{}
	lastRunAt   time.Time
	lastSummary verification.TickSummary
	healthy     bool
}

// NewReconcileWorker creates a worker ticking every interval.
func NewReconcileWorker(t Ticker, interval time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		ticker:      t,
		interval:    interval,
		tickTimeout: DefaultTickTimeout,
		healthy:     true,
	}
}

// WithInitialDelay delays the first tick after Start.
func (w *ReconcileWorker) WithInitialDelay(d time.Duration) *ReconcileWorker {
	w.initialDelay = d
	return w
}

// WithTickTimeout overrides DefaultTickTimeout.
func (w *ReconcileWorker) WithTickTimeout(d time.Duration) *ReconcileWorker {
	if d > 0 {
		w.tickTimeout = d
	}
	return w
}

// Start launches the loop. It returns immediately; the loop runs until Stop
// is called or ctx is cancelled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		logger.Info("reconcile worker: starting", "interval", w.interval.String())

		if w.initialDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.initialDelay):
			}
		}
		w.RunOnce(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("reconcile worker: stopped")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (w *ReconcileWorker) Stop() {
	w.mu.RLock()
	cancel, done := w.cancel, w.done
	w.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce runs a single tick and records its outcome.
func (w *ReconcileWorker) RunOnce(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, w.tickTimeout)
	defer cancel()

	summary, err := w.ticker.Tick(tickCtx)

	w.mu.Lock()
	w.lastRunAt = time.Now()
	w.lastSummary = summary
	w.healthy = err == nil
	w.mu.Unlock()

	if err != nil {
		logger.Error("reconcile worker: tick failed", "error", err)
		return
	}
	logger.Info("reconcile worker: "+summary.String(), "tick_id", summary.TickID)
}

// IsHealthy reports whether the last tick could list pending batches.
func (w *ReconcileWorker) IsHealthy() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.healthy
}

// LastRunAt returns when the last tick finished.
func (w *ReconcileWorker) LastRunAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRunAt
}

// LastSummary returns the summary of the last tick.
func (w *ReconcileWorker) LastSummary() verification.TickSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastSummary
}
