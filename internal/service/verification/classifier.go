package verification

import (
	"sort"

	"github.com/ignite/lead-verifier/internal/domain"
)

// Bucket is one of the three outcome classes of a provider category.
type Bucket int

const (
	BucketUnresolved Bucket = iota
	BucketGood
	BucketBad
)

func (b Bucket) String() string {
	switch b {
	case BucketGood:
		return "good"
	case BucketBad:
		return "bad"
	default:
		return "unresolved"
	}
}

const goodLabel = "ok"

var badLabels = map[string]struct{}{
	"invalid_syntax": {},
	"invalid_mx":     {},
	"email_disabled": {},
	"dead_server":    {},
	"disposable":     {},
	"spamtrap":       {},
}

var unresolvedLabels = map[string]struct{}{
	"unknown":         {},
	"ok_for_all":      {},
	"antispam_system": {},
	"smtp_protocol":   {},
}

// ClassifyLabel maps a lowercased provider category to a bucket. Labels
// outside both fixed sets are UNRESOLVED, never dropped and never guessed
// good or bad.
func ClassifyLabel(label string) Bucket {
	if label == goodLabel {
		return BucketGood
	}
	if _, ok := badLabels[label]; ok {
		return BucketBad
	}
	return BucketUnresolved
}

// IsKnownLabel reports whether label belongs to one of the fixed sets.
func IsKnownLabel(label string) bool {
	if label == goodLabel {
		return true
	}
	_, bad := badLabels[label]
	_, unresolved := unresolvedLabels[label]
	return bad || unresolved
}

// Buckets holds disjoint email sets produced by Classify.
type Buckets struct {
	Good       map[string]struct{}
	Bad        map[string]struct{}
	Unresolved map[string]struct{}

	// Conflicts counts emails reported under more than one bucket.
	Conflicts int
	// UnknownLabels counts rows whose category is in no fixed set.
	UnknownLabels int
}

// Classify assigns every email in the lists to exactly one bucket. When an
// email appears more than once, the last row wins, in list order then row
// order; this keeps the buckets disjoint.
func Classify(lists ...[]domain.ClassifiedPair) Buckets {
	final := make(map[string]Bucket)
	var conflicts map[string]struct{}
	unknown := 0

	for _, list := range lists {
		for _, p := range list {
			if p.Email == "" {
				continue
			}
			if !IsKnownLabel(p.Category) {
				unknown++
			}
			b := ClassifyLabel(p.Category)
			if prev, seen := final[p.Email]; seen && prev != b {
				if conflicts == nil {
					conflicts = make(map[string]struct{})
				}
				conflicts[p.Email] = struct{}{}
			}
			final[p.Email] = b
		}
	}

	out := Buckets{
		Good:          make(map[string]struct{}),
		Bad:           make(map[string]struct{}),
		Unresolved:    make(map[string]struct{}),
		Conflicts:     len(conflicts),
		UnknownLabels: unknown,
	}
	for email, b := range final {
		out.set(b)[email] = struct{}{}
	}
	return out
}

func (b Buckets) set(bucket Bucket) map[string]struct{} {
	switch bucket {
	case BucketGood:
		return b.Good
	case BucketBad:
		return b.Bad
	default:
		return b.Unresolved
	}
}

// Contains reports whether email is in any bucket.
func (b Buckets) Contains(email string) bool {
	if _, ok := b.Good[email]; ok {
		return true
	}
	if _, ok := b.Bad[email]; ok {
		return true
	}
	_, ok := b.Unresolved[email]
	return ok
}

// Len returns the number of classified emails.
func (b Buckets) Len() int {
	return len(b.Good) + len(b.Bad) + len(b.Unresolved)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
