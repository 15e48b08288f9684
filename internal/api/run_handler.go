package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ignite/lead-verifier/internal/pkg/httputil"
	"github.com/ignite/lead-verifier/internal/service/verification"
)

// RunResponse is the body of a successful POST /run.
type RunResponse struct {
	Summary string `json:"summary"`
	verification.TickSummary
}

// RunHandler triggers one tick synchronously.
type RunHandler struct {
	ticker  Ticker
	timeout time.Duration
}

// ServeHTTP runs the tick and reports its summary. Per-batch failures still
// yield 200; only a tick-level failure is a 500.
//
//	POST /run
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ticker == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "not_configured", "reconciliation is not configured")
		return
	}

	// The tick outlives a dropped client connection.
	ctx := context.WithoutCancel(r.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.ticker.Tick(ctx)
	if err != nil {
		code := "tick_failed"
		if errors.Is(err, verification.ErrListPending) {
			code = "list_pending_failed"
		}
		httputil.InternalError(w, code, err)
		return
	}
	httputil.OK(w, RunResponse{Summary: summary.String(), TickSummary: summary})
}
