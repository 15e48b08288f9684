package verification

import (
	"sort"
	"strings"

	"github.com/ignite/lead-verifier/internal/domain"
)

// DefaultChunkSize bounds the emails sent in one lead-store request.
const DefaultChunkSize = 200

// statusOrder fixes the order instructions are emitted in.
var statusOrder = []domain.LeadVerificationStatus{
	domain.VerificationOK,
	domain.VerificationBad,
	domain.VerificationUnknown,
}

// Outcome is the final decision for every email of one batch.
type Outcome struct {
	Statuses map[string]domain.LeadVerificationStatus
	// Unaccounted lists submitted emails absent from every result list, sorted.
	Unaccounted []string
}

// Count returns how many emails resolved to status.
func (o Outcome) Count(status domain.LeadVerificationStatus) int {
	n := 0
	for _, s := range o.Statuses {
		if s == status {
			n++
		}
	}
	return n
}

// Reconcile merges classified buckets with the submitted universe. GOOD
// becomes verified_ok, BAD verified_bad, and both UNRESOLVED and unaccounted
// emails verified_unknown, so no submitted email is left unverified.
// Reported emails that were never submitted are kept; they may still match
// a lead of the campaign.
func Reconcile(b Buckets, submitted []string) Outcome {
	out := Outcome{Statuses: make(map[string]domain.LeadVerificationStatus, b.Len()+len(submitted))}

	for email := range b.Good {
		out.Statuses[email] = domain.VerificationOK
	}
	for email := range b.Bad {
		out.Statuses[email] = domain.VerificationBad
	}
	for email := range b.Unresolved {
		out.Statuses[email] = domain.VerificationUnknown
	}

	seen := make(map[string]struct{}, len(submitted))
	for _, raw := range submitted {
		email := normalizeEmail(raw)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if b.Contains(email) {
			continue
		}
		out.Statuses[email] = domain.VerificationUnknown
		out.Unaccounted = append(out.Unaccounted, email)
	}
	sort.Strings(out.Unaccounted)
	return out
}

// UpdateInstruction asks the lead store to set Status on every lead of
// CampaignID whose email is in Emails.
type UpdateInstruction struct {
	CampaignID string
	Status     domain.LeadVerificationStatus
	Emails     []string
}

// Instructions groups an outcome by target status. Emails are sorted and
// empty groups are omitted.
func Instructions(o Outcome, campaignID string) []UpdateInstruction {
	groups := make(map[domain.LeadVerificationStatus]map[string]struct{}, len(statusOrder))
	for email, s := range o.Statuses {
		if groups[s] == nil {
			groups[s] = make(map[string]struct{})
		}
		groups[s][email] = struct{}{}
	}

	var out []UpdateInstruction
	for _, s := range statusOrder {
		if len(groups[s]) == 0 {
			continue
		}
		out = append(out, UpdateInstruction{
			CampaignID: campaignID,
			Status:     s,
			Emails:     sortedKeys(groups[s]),
		})
	}
	return out
}

// Chunk splits emails into slices of at most size. Chunks share the
// backing array of emails.
func Chunk(emails []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]string
	for start := 0; start < len(emails); start += size {
		end := start + size
		if end > len(emails) {
			end = len(emails)
		}
		out = append(out, emails[start:end:end])
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
