package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ignite/lead-verifier/internal/domain"
)

// minStatusFields is the number of pipe-separated fields a usable status
// line must carry; the two result links after them are optional.
const minStatusFields = 7

// completionMarkers are matched as substrings of the lowercased status text.
// This is a heuristic over free text: if the provider rewords its statuses,
// batches stall as "not complete" without any error. Keep this the only
// place the wording lives.
var completionMarkers = []string{"complete", "finish", "ready"}

// IsComplete reports whether a raw provider status means results are ready.
// Empty or unrecognized statuses are not complete.
func IsComplete(status string) bool {
	s := strings.ToLower(status)
	for _, m := range completionMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// StatusDescriptor is the parsed status line of one provider file.
type StatusDescriptor struct {
	FileID         string
	Filename       string
	UniqueCount    int
	TotalLines     int
	LinesProcessed int
	Status         string
	Timestamp      string
	ResultLink1    string
	ResultLink2    string
}

// Complete applies IsComplete to the descriptor's status text.
func (d StatusDescriptor) Complete() bool { return IsComplete(d.Status) }

// Progress converts the descriptor into the snapshot persisted per poll.
func (d StatusDescriptor) Progress() domain.BatchProgress {
	return domain.BatchProgress{
		Status:         d.Status,
		TotalLines:     d.TotalLines,
		LinesProcessed: d.LinesProcessed,
		Complete:       d.Complete(),
		ResultLink1:    d.ResultLink1,
		ResultLink2:    d.ResultLink2,
	}
}

// ParseStatusLine parses
//
//	fileId|filename|uniqueCount|totalLines|linesProcessed|status|timestamp|[link1]|[link2]
//
// Numeric fields that fail to parse become 0 instead of failing the line.
func ParseStatusLine(line string) (*StatusDescriptor, error) {
	fields := strings.Split(strings.TrimSpace(line), "|")
	if len(fields) < minStatusFields {
		return nil, fmt.Errorf("%w: expected at least %d fields, got %d", ErrStatusUnavailable, minStatusFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	d := &StatusDescriptor{
		FileID:         fields[0],
		Filename:       fields[1],
		UniqueCount:    atoiOrZero(fields[2]),
		TotalLines:     atoiOrZero(fields[3]),
		LinesProcessed: atoiOrZero(fields[4]),
		Status:         fields[5],
		Timestamp:      fields[6],
	}
	if len(fields) > 7 {
		d.ResultLink1 = fields[7]
	}
	if len(fields) > 8 {
		d.ResultLink2 = fields[8]
	}
	return d, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
