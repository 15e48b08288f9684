package verification

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/provider"
)

// memBatchStore is an in-memory BatchStore for testing.
type memBatchStore struct {
	mu       sync.Mutex
	batches  []*domain.VerificationBatch
	touched  map[string]int
	progress map[string][]domain.BatchProgress
	listErr  error
	markErr  error
}

func newMemBatchStore(batches ...domain.VerificationBatch) *memBatchStore {
	s := &memBatchStore{touched: map[string]int{}, progress: map[string][]domain.BatchProgress{}}
	for i := range batches {
		b := batches[i]
		s.batches = append(s.batches, &b)
	}
	return s
}

func (s *memBatchStore) ListPending(_ context.Context, limit int) ([]domain.VerificationBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.VerificationBatch
	for _, b := range s.batches {
		if b.Processed {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *memBatchStore) find(id string) *domain.VerificationBatch {
	for _, b := range s.batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *memBatchStore) TouchChecked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id]++
	return nil
}

func (s *memBatchStore) SaveProgress(_ context.Context, id string, p domain.BatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id]++
	s.progress[id] = append(s.progress[id], p)
	if b := s.find(id); b != nil {
		b.Status = p.Status
		b.LinesProcessed = p.LinesProcessed
		b.Complete = p.Complete
		b.ResultLink1 = p.ResultLink1
		b.ResultLink2 = p.ResultLink2
	}
	return nil
}

func (s *memBatchStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	if b := s.find(id); b != nil {
		b.Processed = true
	}
	return nil
}

func (s *memBatchStore) batch(id string) domain.VerificationBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.find(id)
}

// memLeadStore is an in-memory LeadStore for testing.
type memLeadStore struct {
	mu      sync.Mutex
	leads   []*domain.Lead
	writes  int
	failFor map[string]bool // update fails when a chunk contains this email
	findErr error
}

func newMemLeadStore(leads ...domain.Lead) *memLeadStore {
	s := &memLeadStore{failFor: map[string]bool{}}
	for i := range leads {
		l := leads[i]
		if l.VerificationStatus == "" {
			l.VerificationStatus = domain.VerificationUnverified
		}
		s.leads = append(s.leads, &l)
	}
	return s
}

func (s *memLeadStore) FindByEmails(_ context.Context, campaignID string, emails []string) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	want := toSet(emails)
	var out []domain.Lead
	for _, l := range s.leads {
		if _, ok := want[strings.ToLower(l.Email)]; ok && l.CampaignID == campaignID {
			c := *l
			c.Email = strings.ToLower(c.Email)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memLeadStore) UpdateVerificationStatus(_ context.Context, campaignID string, status domain.LeadVerificationStatus, emails []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range emails {
		if s.failFor[e] {
			return 0, errors.New("row limit exceeded")
		}
	}
	s.writes++
	want := toSet(emails)
	var n int64
	for _, l := range s.leads {
		if _, ok := want[strings.ToLower(l.Email)]; ok && l.CampaignID == campaignID {
			l.VerificationStatus = status
			n++
		}
	}
	return n, nil
}

func (s *memLeadStore) statuses() map[string][]domain.LeadVerificationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]domain.LeadVerificationStatus{}
	for _, l := range s.leads {
		k := l.CampaignID + ":" + strings.ToLower(l.Email)
		out[k] = append(out[k], l.VerificationStatus)
	}
	return out
}

func (s *memLeadStore) statusOf(campaignID, email string) domain.LeadVerificationStatus {
	st := s.statuses()[campaignID+":"+email]
	if len(st) == 0 {
		return ""
	}
	return st[0]
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

// fakeStatus serves canned status lines per file id.
type fakeStatus struct {
	lines map[string]string
	errs  map[string]error
	calls map[string]int
	// onFetch, when set, runs inside FetchStatus before it answers.
	onFetch func()
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{lines: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeStatus) FetchStatus(_ context.Context, fileID string) (*provider.StatusDescriptor, error) {
	f.calls[fileID]++
	if f.onFetch != nil {
		hook := f.onFetch
		f.onFetch = nil
		hook()
	}
	if err := f.errs[fileID]; err != nil {
		return nil, err
	}
	line, ok := f.lines[fileID]
	if !ok {
		return nil, provider.ErrStatusUnavailable
	}
	return provider.ParseStatusLine(line)
}

// fakeResults serves canned result files per URL.
type fakeResults struct {
	mu    sync.Mutex
	files map[string][]domain.ClassifiedPair
	errs  map[string]error
	calls int
}

func (f *fakeResults) FetchPairs(_ context.Context, url string) ([]domain.ClassifiedPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.files[url], nil
}

type fakeArchive struct {
	batches []string
	err     error
}

func (a *fakeArchive) ArchiveResults(_ context.Context, b domain.VerificationBatch, _ [][]domain.ClassifiedPair) error {
	a.batches = append(a.batches, b.ID)
	return a.err
}

type fakeForgetter struct{ urls []string }

func (f *fakeForgetter) Forget(_ context.Context, urls ...string) error {
	f.urls = append(f.urls, urls...)
	return nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func pairs(category string, emails ...string) []domain.ClassifiedPair {
	out := make([]domain.ClassifiedPair, 0, len(emails))
	for _, e := range emails {
		out = append(out, domain.ClassifiedPair{Category: category, Email: e})
	}
	return out
}
