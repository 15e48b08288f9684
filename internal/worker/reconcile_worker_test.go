package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ignite/lead-verifier/internal/service/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct {
	calls atomic.Int32
	err   error
}

func (c *countingTicker) Tick(ctx context.Context) (verification.TickSummary, error) {
	n := c.calls.Add(1)
	return verification.TickSummary{TickID: "t", Selected: int(n), Processed: int(n)}, c.err
}

func TestReconcileWorker_RunOnceRecordsOutcome(t *testing.T) {
	ticker := &countingTicker{}
	w := NewReconcileWorker(ticker, time.Hour)
	assert.True(t, w.LastRunAt().IsZero())

	w.RunOnce(context.Background())

	assert.True(t, w.IsHealthy())
	assert.False(t, w.LastRunAt().IsZero())
	assert.Equal(t, 1, w.LastSummary().Processed)
}

func TestReconcileWorker_UnhealthyAfterTickError(t *testing.T) {
	ticker := &countingTicker{err: errors.New("list pending verification batches: connection refused")}
	w := NewReconcileWorker(ticker, time.Hour)

	w.RunOnce(context.Background())
	assert.False(t, w.IsHealthy())

	ticker.err = nil
	w.RunOnce(context.Background())
	assert.True(t, w.IsHealthy())
}

func TestReconcileWorker_TicksUntilStopped(t *testing.T) {
	ticker := &countingTicker{}
	w := NewReconcileWorker(ticker, 10*time.Millisecond)

	w.Start(context.Background())
	require.Eventually(t, func() bool { return ticker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.Stop()

	after := ticker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticker.calls.Load(), "no ticks after Stop")
}

func TestReconcileWorker_StopBeforeStart(t *testing.T) {
	w := NewReconcileWorker(&countingTicker{}, time.Second)
	assert.NotPanics(t, w.Stop)
}

func TestReconcileWorker_InitialDelayHonoursCancel(t *testing.T) {
	ticker := &countingTicker{}
	w := NewReconcileWorker(ticker, time.Hour).WithInitialDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	w.Stop()
	assert.Zero(t, ticker.calls.Load())
}
