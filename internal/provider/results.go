package provider

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/pkg/httpretry"
	"github.com/ignite/lead-verifier/internal/pkg/logger"
)

const (
	// maxResultBody bounds one result file download.
	maxResultBody = 256 << 20
	// maxPairLine bounds one result line; longer lines are skipped whole.
	maxPairLine = 64 << 10
)

// headerPrefixes identify the optional header row of a result file,
// compared against the lowercased line.
var headerPrefixes = []string{"category,", "status,", "result,", "email,"}

// Downloader fetches a result file body by URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader downloads result files over HTTP with retries.
type HTTPDownloader struct {
	httpClient httpretry.HTTPDoer
	maxBody    int64
}

// NewHTTPDownloader wraps an http.Client with the given timeout in a RetryClient.
func NewHTTPDownloader(timeout time.Duration, retries int) *HTTPDownloader {
	return &HTTPDownloader{
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, retries),
		maxBody:    maxResultBody,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (d *HTTPDownloader) SetHTTPClient(client httpretry.HTTPDoer) {
	d.httpClient = client
}

// Download returns the body of url or an error for transport failures and
// non-2xx responses. A body over the size cap fails with ErrResultTruncated
// rather than returning a short read.
func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download result file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("download result file: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	if int64(len(body)) > d.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResultTruncated, d.maxBody)
	}
	return body, nil
}

// ResultFetcher turns result file URLs into classified pairs.
type ResultFetcher struct {
	downloader Downloader
}

// NewResultFetcher creates a fetcher over the given downloader (possibly cached).
func NewResultFetcher(d Downloader) *ResultFetcher {
	return &ResultFetcher{downloader: d}
}

// FetchPairs downloads and parses one result file. A missing URL or a
// failed download yields no pairs and no error, so one broken link never
// blocks a complete batch. Only ErrResultTruncated is returned: the file
// exists but could not be read whole.
func (f *ResultFetcher) FetchPairs(ctx context.Context, url string) ([]domain.ClassifiedPair, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	body, err := f.downloader.Download(ctx, url)
	if errors.Is(err, ErrResultTruncated) {
		return nil, err
	}
	if err != nil {
		logger.Warn("provider: result file unavailable, treating as empty", "error", err)
		return nil, nil
	}
	return ParsePairs(bytes.NewReader(body)), nil
}

// ParsePairs parses "category,email" lines. Empty lines, header rows, lines
// without a comma, emails without '@' and lines over maxPairLine bytes are
// skipped; parsing always continues to the end of r.
func ParsePairs(r io.Reader) []domain.ClassifiedPair {
	var pairs []domain.ClassifiedPair

	br := bufio.NewReaderSize(r, 4<<10)
	var line []byte
	oversized := false
	skipped := 0
	first := true
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized && len(line)+len(chunk) <= maxPairLine {
			line = append(line, chunk...)
		} else {
			oversized = true
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if oversized {
			skipped++
		} else if len(line) > 0 {
			text := string(line)
			if first {
				text = strings.TrimPrefix(text, "\ufeff")
			}
			if p, ok := parsePairLine(text); ok {
				pairs = append(pairs, p)
			}
		}
		if len(line) > 0 || oversized {
			first = false
		}
		line = line[:0]
		oversized = false

		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("provider: result file read failed", "error", err, "pairs", len(pairs))
			}
			break
		}
	}
	if skipped > 0 {
		logger.Warn("provider: skipped oversized result lines", "lines", skipped, "limit", maxPairLine)
	}
	return pairs
}

func parsePairLine(line string) (domain.ClassifiedPair, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return domain.ClassifiedPair{}, false
	}
	for _, h := range headerPrefixes {
		if strings.HasPrefix(line, h) {
			return domain.ClassifiedPair{}, false
		}
	}
	category, email, ok := strings.Cut(line, ",")
	if !ok {
		return domain.ClassifiedPair{}, false
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return domain.ClassifiedPair{}, false
	}
	return domain.ClassifiedPair{Category: strings.TrimSpace(category), Email: email}, true
}
