package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/lib/pq"
)

// BatchRepo implements verification.BatchStore against PostgreSQL.
type BatchRepo struct{ db *sql.DB }

// NewBatchRepo creates a Postgres-backed batch repository.
func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

// ListPending returns unprocessed batches, oldest first.
func (r *BatchRepo) ListPending(ctx context.Context, limit int) ([]domain.VerificationBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, file_id, submitted_emails, total_lines, lines_processed,
		       status, complete, COALESCE(result_link_1, ''), COALESCE(result_link_2, ''),
		       checked_at, processed, created_at
		FROM verification_batches
		WHERE processed = false
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending batches: %w", err)
	}
	defer rows.Close()

	var out []domain.VerificationBatch
	for rows.Next() {
		var b domain.VerificationBatch
		var checkedAt sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.CampaignID, &b.FileID, pq.Array(&b.SubmittedEmails),
			&b.TotalLines, &b.LinesProcessed, &b.Status, &b.Complete,
			&b.ResultLink1, &b.ResultLink2, &checkedAt, &b.Processed, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if checkedAt.Valid {
			t := checkedAt.Time
			b.CheckedAt = &t
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}

// TouchChecked records a poll attempt without changing progress.
func (r *BatchRepo) TouchChecked(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE verification_batches SET checked_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch batch %s: %w", id, err)
	}
	return nil
}

// SaveProgress persists the latest provider snapshot. Empty links are
// stored as NULL.
func (r *BatchRepo) SaveProgress(ctx context.Context, id string, p domain.BatchProgress) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verification_batches
		SET status = $2, total_lines = $3, lines_processed = $4, complete = $5,
		    result_link_1 = NULLIF($6, ''), result_link_2 = NULLIF($7, ''),
		    checked_at = NOW()
		WHERE id = $1
	`, id, p.Status, p.TotalLines, p.LinesProcessed, p.Complete, p.ResultLink1, p.ResultLink2)
	if err != nil {
		return fmt.Errorf("save batch progress %s: %w", id, err)
	}
	return nil
}

// MarkProcessed flags the batch as reconciled. It is only called after
// every lead update succeeded.
func (r *BatchRepo) MarkProcessed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verification_batches SET processed = true, checked_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark batch %s processed: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark batch %s processed: %w", id, sql.ErrNoRows)
	}
	return nil
}
