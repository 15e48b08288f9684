package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ignite/lead-verifier/internal/domain"
	"github.com/ignite/lead-verifier/internal/pkg/httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePairs_SkipsHeaderAndCorruptLines(t *testing.T) {
	body := "Category,Email\n" +
		"ok,Alice@Example.com\n" +
		"this line has no comma\n" +
		"\n" +
		"invalid_mx, bob@example.com \r\n" +
		"unknown,not-an-email\n" +
		"spamtrap,carol@example.com,extra\n"

	pairs := ParsePairs(strings.NewReader(body))

	assert.Equal(t, []domain.ClassifiedPair{
		{Category: "ok", Email: "alice@example.com"},
		{Category: "invalid_mx", Email: "bob@example.com"},
		{Category: "spamtrap", Email: "carol@example.com,extra"},
	}, pairs)
}

func TestParsePairs_StripsBOM(t *testing.T) {
	pairs := ParsePairs(strings.NewReader("\ufeffok,a@x.com\n"))
	require.Len(t, pairs, 1)
	assert.Equal(t, "ok", pairs[0].Category)
}

func TestParsePairs_EmailDisabledIsNotAHeader(t *testing.T) {
	pairs := ParsePairs(strings.NewReader("email,status\nemail_disabled,d@x.com\n"))
	require.Len(t, pairs, 1)
	assert.Equal(t, "email_disabled", pairs[0].Category)
}

func TestParsePairs_Empty(t *testing.T) {
	assert.Empty(t, ParsePairs(strings.NewReader("")))
}

func TestResultFetcher_FetchPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok,a@x.com\ndead_server,b@x.com\n"))
	}))
	defer server.Close()

	f := NewResultFetcher(NewHTTPDownloader(5*time.Second, 1))
	pairs, err := f.FetchPairs(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestResultFetcher_MissingURLYieldsNothing(t *testing.T) {
	f := NewResultFetcher(NewHTTPDownloader(time.Second, 1))
	pairs, err := f.FetchPairs(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestResultFetcher_HTTPFailureYieldsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewResultFetcher(NewHTTPDownloader(time.Second, 1))
	pairs, err := f.FetchPairs(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestHTTPDownloader_RetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok,a@x.com\n"))
	}))
	defer server.Close()

	d := NewHTTPDownloader(time.Second, 2)
	d.SetHTTPClient(httpretry.NewRetryClient(server.Client(), 2).WithDelays(time.Millisecond, 2*time.Millisecond))

	body, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok,a@x.com\n", string(body))
	assert.Equal(t, 2, calls)
}

func TestParsePairs_OversizedLineDoesNotEndFile(t *testing.T) {
	huge := strings.Repeat("x", 2<<20)
	body := "ok,a@x.com\n" +
		"ok," + huge + "@x.com\n" +
		"invalid_mx,b@x.com\n" +
		"ok,c@x.com\n"

	pairs := ParsePairs(strings.NewReader(body))

	assert.Equal(t, []domain.ClassifiedPair{
		{Category: "ok", Email: "a@x.com"},
		{Category: "invalid_mx", Email: "b@x.com"},
		{Category: "ok", Email: "c@x.com"},
	}, pairs)
}

func TestParsePairs_OversizedFinalLineWithoutNewline(t *testing.T) {
	body := "spamtrap,s@x.com\r\nok," + strings.Repeat("y", maxPairLine) + "@x.com"

	pairs := ParsePairs(strings.NewReader(body))
	assert.Equal(t, []domain.ClassifiedPair{{Category: "spamtrap", Email: "s@x.com"}}, pairs)
}

func TestParsePairs_LongButAllowedLine(t *testing.T) {
	local := strings.Repeat("z", 10<<10)
	pairs := ParsePairs(strings.NewReader("ok," + local + "@x.com\nok,d@x.com"))

	require.Len(t, pairs, 2)
	assert.Equal(t, local+"@x.com", pairs[0].Email)
	assert.Equal(t, "d@x.com", pairs[1].Email)
}

func TestHTTPDownloader_OverCapIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok,a@x.com\nok,b@x.com\n"))
	}))
	defer server.Close()

	d := NewHTTPDownloader(time.Second, 0)
	d.maxBody = 12

	_, err := d.Download(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrResultTruncated)

	pairs, err := NewResultFetcher(d).FetchPairs(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrResultTruncated)
	assert.Nil(t, pairs)
}

func TestHTTPDownloader_BodyAtCapIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok,a@x.com\n"))
	}))
	defer server.Close()

	d := NewHTTPDownloader(time.Second, 0)
	d.maxBody = int64(len("ok,a@x.com\n"))

	body, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok,a@x.com\n", string(body))
}
