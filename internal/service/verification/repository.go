package verification

import (
	"context"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/provider"
)

// BatchStore is the data access contract for verification batches.
type BatchStore interface {
	// ListPending returns up to limit batches with processed = false,
	// oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.VerificationBatch, error)

	// TouchChecked records a poll attempt that produced no descriptor.
	TouchChecked(ctx context.Context, batchID string) error

	// SaveProgress stores the latest provider snapshot and checked_at.
	SaveProgress(ctx context.Context, batchID string, p domain.BatchProgress) error

	// MarkProcessed flags the batch terminal. It must never be undone.
	MarkProcessed(ctx context.Context, batchID string) error
}

// LeadStore is the data access contract for lead rows.
type LeadStore interface {
	// FindByEmails returns every lead in the campaign whose lowercased email
	// is in emails. Email in the result is lowercased.
	FindByEmails(ctx context.Context, campaignID string, emails []string) ([]domain.Lead, error)

	// UpdateVerificationStatus sets status on every lead of the campaign
	// whose lowercased email is in emails and returns the rows touched.
	UpdateVerificationStatus(ctx context.Context, campaignID string, status domain.LeadVerificationStatus, emails []string) (int64, error)
}

// StatusSource polls the provider for one file's status.
type StatusSource interface {
	FetchStatus(ctx context.Context, fileID string) (*provider.StatusDescriptor, error)
}

// ResultSource downloads one result list. A missing or broken link yields
// no pairs; an error means the list exists but is incomplete.
type ResultSource interface {
	FetchPairs(ctx context.Context, url string) ([]domain.ClassifiedPair, error)
}

// ResultArchiver keeps a copy of the parsed result lists of a batch.
type ResultArchiver interface {
	ArchiveResults(ctx context.Context, batch domain.VerificationBatch, lists [][]domain.ClassifiedPair) error
}

// ResultForgetter drops cached result files once a batch is processed.
type ResultForgetter interface {
	Forget(ctx context.Context, urls ...string) error
}
