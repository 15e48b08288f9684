package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/lib/pq"
)

// LeadRepo implements verification.LeadStore against PostgreSQL. Emails are
// matched case-insensitively through the (campaign_id, lower(email)) index.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

// FindByEmails returns every lead of campaignID whose lowercased email is in
// emails. Email is returned lowercased.
func (r *LeadRepo) FindByEmails(ctx context.Context, campaignID string, emails []string) ([]domain.Lead, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, lower(email), verification_status, verification_checked_at
		FROM leads
		WHERE campaign_id = $1 AND lower(email) = ANY($2)
	`, campaignID, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("find leads by email: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		var status string
		var checkedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.Email, &status, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.VerificationStatus = domain.LeadVerificationStatus(status)
		if checkedAt.Valid {
			t := checkedAt.Time
			l.VerificationCheckedAt = &t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateVerificationStatus sets status on every matching lead and returns
// the number of rows written. Re-applying the same status is harmless.
func (r *LeadRepo) UpdateVerificationStatus(ctx context.Context, campaignID string, status domain.LeadVerificationStatus, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET verification_status = $1, verification_checked_at = NOW()
		WHERE campaign_id = $2 AND lower(email) = ANY($3)
	`, string(status), campaignID, pq.Array(emails))
	if err != nil {
		return 0, fmt.Errorf("update lead verification status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
