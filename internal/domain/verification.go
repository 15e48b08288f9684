package domain

import "time"

// LeadVerificationStatus enumerates the verification states of a lead.
type LeadVerificationStatus string

const (
	VerificationUnverified LeadVerificationStatus = "unverified"
	VerificationOK         LeadVerificationStatus = "verified_ok"
	VerificationBad        LeadVerificationStatus = "verified_bad"
	VerificationUnknown    LeadVerificationStatus = "verified_unknown"
)

// IsTerminal reports whether the status is a reconciled outcome.
func (s LeadVerificationStatus) IsTerminal() bool {
	switch s {
	case VerificationOK, VerificationBad, VerificationUnknown:
		return true
	default:
		return false
	}
}

// VerificationBatch is one list uploaded to the verification provider.
// Rows are created by the upload step and mutated only by the batch driver.
type VerificationBatch struct {
	ID              string     `json:"id" db:"id"`
	CampaignID      string     `json:"campaign_id" db:"campaign_id"`
	FileID          string     `json:"file_id" db:"file_id"`
	SubmittedEmails []string   `json:"submitted_emails" db:"submitted_emails"`
	TotalLines      int        `json:"total_lines" db:"total_lines"`
	LinesProcessed  int        `json:"lines_processed" db:"lines_processed"`
	Status          string     `json:"status" db:"status"`
	Complete        bool       `json:"complete" db:"complete"`
	ResultLink1     string     `json:"result_link_1,omitempty" db:"result_link_1"`
	ResultLink2     string     `json:"result_link_2,omitempty" db:"result_link_2"`
	CheckedAt       *time.Time `json:"checked_at" db:"checked_at"`
	Processed       bool       `json:"processed" db:"processed"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Lead is a person record keyed by campaign and case-insensitive email.
// Several leads may share one email; they always receive the same update.
type Lead struct {
	ID                    string                 `json:"id" db:"id"`
	CampaignID            string                 `json:"campaign_id" db:"campaign_id"`
	Email                 string                 `json:"email" db:"email"`
	VerificationStatus    LeadVerificationStatus `json:"verification_status" db:"verification_status"`
	VerificationCheckedAt *time.Time             `json:"verification_checked_at" db:"verification_checked_at"`
}

// ClassifiedPair is one parsed line of a provider result file. Both fields
// are lowercased.
type ClassifiedPair struct {
	Category string `json:"category"`
	Email    string `json:"email"`
}

// BatchProgress is the poll snapshot persisted on every successful status fetch.
type BatchProgress struct {
	Status         string
	TotalLines     int
	LinesProcessed int
	Complete       bool
	ResultLink1    string
	ResultLink2    string
}
