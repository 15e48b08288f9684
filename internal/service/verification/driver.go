package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/metrics"
	"github.com/ignite/lead-verifier/internal/pkg/distlock"
	"github.com/ignite/lead-verifier/internal/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit caps the batches handled per tick.
const DefaultBatchLimit = 20

// Batch results, also used as metric labels.
const (
	ResultProcessed = "processed"
	ResultPending   = "pending"
	ResultFailed    = "failed"
)

// Options configures a Driver. Zero values are valid.
type Options struct {
	BatchLimit int
	ChunkSize  int
	Archive    ResultArchiver
	Forgetter  ResultForgetter
	// Lock guards against a concurrent tick; nil means no guard.
	Lock    distlock.DistLock
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Driver runs one reconciliation pass per Tick.
type Driver struct {
	batches    BatchStore
	status     StatusSource
	results    ResultSource
	applier    *Applier
	archive    ResultArchiver
	forgetter  ResultForgetter
	lock       distlock.DistLock
	metrics    *metrics.Metrics
	log        *logger.Logger
	batchLimit int
}

// NewDriver wires a driver over its collaborators.
func NewDriver(batches BatchStore, leads LeadStore, status StatusSource, results ResultSource, opts Options) *Driver {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = DefaultBatchLimit
	}
	if opts.Lock == nil {
		opts.Lock = distlock.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Driver{
		batches:    batches,
		status:     status,
		results:    results,
		applier:    NewApplier(leads, opts.ChunkSize, opts.Metrics),
		archive:    opts.Archive,
		forgetter:  opts.Forgetter,
		lock:       opts.Lock,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		batchLimit: opts.BatchLimit,
	}
}

// TickSummary is what one tick reports to its trigger.
type TickSummary struct {
	TickID    string        `json:"tick_id"`
	Selected  int           `json:"selected"`
	Polled    int           `json:"polled"`
	Processed int           `json:"processed"`
	Pending   int           `json:"pending"`
	Failed    int           `json:"failed"`
	Skipped   bool          `json:"skipped"`
	Duration  time.Duration `json:"duration_ns"`
}

// String is the short human-readable summary returned by the trigger.
func (s TickSummary) String() string {
	if s.Skipped {
		return "skipped: another tick is running"
	}
	return fmt.Sprintf("processed %d of %d batches (%d pending, %d failed)",
		s.Processed, s.Selected, s.Pending, s.Failed)
}

// Tick runs one pass over pending batches. Only a failure to list batches
// is returned as an error; per-batch failures are logged and counted, and
// those batches stay unprocessed for the next tick.
func (d *Driver) Tick(ctx context.Context) (TickSummary, error) {
	start := time.Now()
	summary := TickSummary{TickID: uuid.NewString()}
	log := d.log.With("tick_id", summary.TickID)

	acquired, err := d.lock.Acquire(ctx)
	switch {
	case err != nil:
		log.Warn("verification: tick lock unavailable, running unguarded", "error", err)
	case !acquired:
		summary.Skipped = true
		summary.Duration = time.Since(start)
		d.metrics.ObserveTick("skipped", summary.Duration)
		log.Info("verification: tick skipped, lock held elsewhere")
		return summary, nil
	default:
		defer func() {
			if err := d.lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("verification: tick lock release failed", "error", err)
			}
		}()
	}

	batches, err := d.batches.ListPending(ctx, d.batchLimit)
	if err != nil {
		summary.Duration = time.Since(start)
		d.metrics.ObserveTick("failed", summary.Duration)
		log.Error("verification: listing pending batches failed", "error", err)
		return summary, fmt.Errorf("%w: %w", ErrListPending, err)
	}
	summary.Selected = len(batches)

	for _, b := range batches {
		if ctx.Err() != nil {
			log.Warn("verification: tick cancelled", "remaining", summary.Selected-summary.Processed-summary.Pending-summary.Failed)
			break
		}
		blog := log.With("batch_id", b.ID, "campaign_id", b.CampaignID, "file_id", b.FileID)
		result, err := d.processBatch(ctx, blog, b, &summary)
		if err != nil {
			blog.Error("verification: batch left unprocessed", "error", err)
			result = ResultFailed
		}
		d.metrics.IncBatch(result)
		switch result {
		case ResultProcessed:
			summary.Processed++
		case ResultPending:
			summary.Pending++
		default:
			summary.Failed++
		}
	}

	summary.Duration = time.Since(start)
	d.metrics.ObserveTick("ok", summary.Duration)
	log.Info("verification: tick finished",
		"selected", summary.Selected, "polled", summary.Polled, "processed", summary.Processed,
		"pending", summary.Pending, "failed", summary.Failed, "duration", summary.Duration)
	return summary, nil
}

// processBatch attempts one state transition for b.
func (d *Driver) processBatch(ctx context.Context, log *logger.Logger, b domain.VerificationBatch, s *TickSummary) (string, error) {
	desc, err := d.status.FetchStatus(ctx, b.FileID)
	if err != nil {
		d.metrics.IncStatusPollFailure()
		log.Warn("verification: status poll failed, batch stays pending", "error", err)
		if err := d.batches.TouchChecked(ctx, b.ID); err != nil {
			return "", fmt.Errorf("touch checked_at: %w", err)
		}
		return ResultPending, nil
	}
	s.Polled++

	progress := desc.Progress()
	if err := d.batches.SaveProgress(ctx, b.ID, progress); err != nil {
		return "", fmt.Errorf("save progress: %w", err)
	}
	if !progress.Complete {
		if progress.TotalLines > 0 && progress.LinesProcessed >= progress.TotalLines {
			log.Warn("verification: all lines processed but status not recognized as complete",
				"status", progress.Status, "lines", progress.TotalLines)
		} else {
			log.Debug("verification: batch not complete", "status", progress.Status,
				"lines_processed", progress.LinesProcessed, "total_lines", progress.TotalLines)
		}
		return ResultPending, nil
	}

	b.Status = progress.Status
	b.ResultLink1 = progress.ResultLink1
	b.ResultLink2 = progress.ResultLink2
	lists, err := d.fetchResults(ctx, b.ResultLink1, b.ResultLink2)
	if err != nil {
		return "", fmt.Errorf("fetch result lists: %w", err)
	}

	if d.archive != nil {
		if err := d.archive.ArchiveResults(ctx, b, lists); err != nil {
			log.Warn("verification: archiving result lists failed", "error", err)
		}
	}

	buckets := Classify(lists...)
	if buckets.Conflicts > 0 || buckets.UnknownLabels > 0 {
		log.Warn("verification: result data quality", "conflicting_emails", buckets.Conflicts,
			"unknown_label_rows", buckets.UnknownLabels)
	}

	outcome := Reconcile(buckets, b.SubmittedEmails)
	report, err := d.applier.Apply(ctx, log, Instructions(outcome, b.CampaignID))
	if err != nil {
		return "", fmt.Errorf("apply lead updates: %w", err)
	}

	if err := d.batches.MarkProcessed(ctx, b.ID); err != nil {
		return "", fmt.Errorf("mark processed: %w", err)
	}

	if d.forgetter != nil {
		if err := d.forgetter.Forget(ctx, b.ResultLink1, b.ResultLink2); err != nil {
			log.Debug("verification: dropping cached result files failed", "error", err)
		}
	}

	log.Info("verification: batch reconciled",
		"ok", outcome.Count(domain.VerificationOK),
		"bad", outcome.Count(domain.VerificationBad),
		"unknown", outcome.Count(domain.VerificationUnknown),
		"unaccounted", len(outcome.Unaccounted),
		"unmatched", report.Unmatched(),
		"rows_updated", report.RowsUpdated())
	return ResultProcessed, nil
}

// fetchResults downloads both result lists concurrently. The lists keep
// link order so later rows win deterministically in Classify. Any error
// leaves the batch pending: reconciling a partial list would settle the
// missing emails as verified_unknown for good.
func (d *Driver) fetchResults(ctx context.Context, links ...string) ([][]domain.ClassifiedPair, error) {
	lists := make([][]domain.ClassifiedPair, len(links))
	g, gctx := errgroup.WithContext(ctx)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			pairs, err := d.results.FetchPairs(gctx, link)
			if err != nil {
				return fmt.Errorf("result link %d: %w", i+1, err)
			}
			lists[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}
