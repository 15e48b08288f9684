package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/metrics"
	"github.com/ignite/lead-verifier/internal/pkg/logger"
)

// LeadIndex counts the leads carrying each lowercased email.
// It lives for one reconciliation pass only.
type LeadIndex map[string]int

// Add counts one lead under its lowercased email.
func (ix LeadIndex) Add(l domain.Lead) {
	ix[normalizeEmail(l.Email)]++
}

// Has reports whether any lead carries email.
func (ix LeadIndex) Has(email string) bool {
	return ix[email] > 0
}

// StatusReport summarizes the writes for one target status.
type StatusReport struct {
	Status       domain.LeadVerificationStatus
	Emails       int
	Matched      int
	Unmatched    int
	RowsUpdated  int64
	FailedChunks int
}

// ApplyReport summarizes one Apply call.
type ApplyReport struct {
	ByStatus []StatusReport
}

// RowsUpdated sums the rows written across statuses.
func (r ApplyReport) RowsUpdated() int64 {
	var n int64
	for _, s := range r.ByStatus {
		n += s.RowsUpdated
	}
	return n
}

// Unmatched sums emails that had no lead row.
func (r ApplyReport) Unmatched() int {
	n := 0
	for _, s := range r.ByStatus {
		n += s.Unmatched
	}
	return n
}

// Applier translates update instructions into chunked lead-store writes.
type Applier struct {
	leads     LeadStore
	chunkSize int
	metrics   *metrics.Metrics
}

// NewApplier creates an applier. chunkSize <= 0 selects DefaultChunkSize.
func NewApplier(leads LeadStore, chunkSize int, m *metrics.Metrics) *Applier {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Applier{leads: leads, chunkSize: chunkSize, metrics: m}
}

// Apply issues every instruction. Emails without a lead are skipped and
// counted, not treated as errors. A failing chunk never stops the remaining
// chunks; every chunk error is joined into the returned error so the caller
// can keep the batch unprocessed and retry it whole.
func (a *Applier) Apply(ctx context.Context, log *logger.Logger, instrs []UpdateInstruction) (ApplyReport, error) {
	var report ApplyReport
	var errs []error

	for _, in := range instrs {
		sr := StatusReport{Status: in.Status, Emails: len(in.Emails)}
		for i, chunk := range Chunk(in.Emails, a.chunkSize) {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			n, err := a.applyChunk(ctx, log, in, chunk, &sr)
			if err != nil {
				sr.FailedChunks++
				a.metrics.IncFailedChunk()
				log.Error("verification: lead update chunk failed",
					"status", in.Status, "chunk", i, "size", len(chunk), "error", err)
				errs = append(errs, fmt.Errorf("update %s chunk %d: %w", in.Status, i, err))
				continue
			}
			sr.RowsUpdated += n
		}
		a.metrics.AddLeadsUpdated(string(in.Status), sr.RowsUpdated)
		a.metrics.AddUnmatched(sr.Unmatched)
		report.ByStatus = append(report.ByStatus, sr)
	}
	return report, errors.Join(errs...)
}

// applyChunk looks up which emails of chunk have leads, then updates those.
// If the lookup itself fails the whole chunk is written anyway: the update
// is keyed by email, so absent emails simply touch no rows.
func (a *Applier) applyChunk(ctx context.Context, log *logger.Logger, in UpdateInstruction, chunk []string, sr *StatusReport) (int64, error) {
	targets := chunk

	leads, err := a.leads.FindByEmails(ctx, in.CampaignID, chunk)
	if err != nil {
		log.Warn("verification: lead lookup failed, updating chunk blind",
			"status", in.Status, "size", len(chunk), "error", err)
		sr.Matched += len(chunk)
	} else {
		ix := make(LeadIndex, len(leads))
		for _, l := range leads {
			ix.Add(l)
		}
		targets = make([]string, 0, len(chunk))
		for _, email := range chunk {
			if ix.Has(email) {
				targets = append(targets, email)
				continue
			}
			sr.Unmatched++
			log.Debug("verification: no lead for classified email", "email", email, "status", in.Status)
		}
		sr.Matched += len(targets)
	}

	if len(targets) == 0 {
		return 0, nil
	}
	return a.leads.UpdateVerificationStatus(ctx, in.CampaignID, in.Status, targets)
}
