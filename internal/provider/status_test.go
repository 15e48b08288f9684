package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"complete", true},
		{"Completed", true},
		{"FINISHED", true},
		{"ready_to_download", true},
		{"in_progress", false},
		{"queued", false},
		{"", false},
		{"unrecognized status", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.status))
		})
	}
}

func TestParseStatusLine_Full(t *testing.T) {
	d, err := ParseStatusLine("f1|list.csv|10|10|10|complete|2024-01-01|http://ok|http://bad\n")
	require.NoError(t, err)

	assert.Equal(t, "f1", d.FileID)
	assert.Equal(t, "list.csv", d.Filename)
	assert.Equal(t, 10, d.UniqueCount)
	assert.Equal(t, 10, d.TotalLines)
	assert.Equal(t, 10, d.LinesProcessed)
	assert.Equal(t, "complete", d.Status)
	assert.Equal(t, "2024-01-01", d.Timestamp)
	assert.Equal(t, "http://ok", d.ResultLink1)
	assert.Equal(t, "http://bad", d.ResultLink2)
	assert.True(t, d.Complete())

	p := d.Progress()
	assert.True(t, p.Complete)
	assert.Equal(t, "http://ok", p.ResultLink1)
}

func TestParseStatusLine_LinksOptional(t *testing.T) {
	d, err := ParseStatusLine("f2|list.csv|5|8|3|in_progress|2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, d.ResultLink1)
	assert.Empty(t, d.ResultLink2)
	assert.False(t, d.Complete())
}

func TestParseStatusLine_BadNumbersDefaultToZero(t *testing.T) {
	d, err := ParseStatusLine("f3|list.csv|n/a|ten| |complete|ts|http://a|")
	require.NoError(t, err)
	assert.Equal(t, 0, d.UniqueCount)
	assert.Equal(t, 0, d.TotalLines)
	assert.Equal(t, 0, d.LinesProcessed)
	assert.Equal(t, "http://a", d.ResultLink1)
	assert.Empty(t, d.ResultLink2)
}

func TestParseStatusLine_TooFewFields(t *testing.T) {
	_, err := ParseStatusLine("  error|no such file  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatusUnavailable))
}

func TestFetchStatus_SendsCredentialAndID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "top-secret", r.URL.Query().Get("secret"))
		assert.Equal(t, "file-42", r.URL.Query().Get("id"))
		w.Write([]byte("file-42|leads.csv|2|2|1|processing|2024-01-01||"))
	}))
	defer server.Close()

	client := NewStatusClient(server.URL, "top-secret", 0)
	d, err := client.FetchStatus(context.Background(), "file-42")
	require.NoError(t, err)
	assert.Equal(t, "processing", d.Status)
	assert.Equal(t, 1, d.LinesProcessed)
	assert.False(t, d.Complete())
}

func TestFetchStatus_ServerErrorIsUnavailable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewStatusClient(server.URL, "s", 0)
	_, err := client.FetchStatus(context.Background(), "f")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusUnavailable)
	assert.Equal(t, 1, calls, "status polls are not retried")
}

func TestFetchStatus_MalformedBodyIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := NewStatusClient(server.URL, "s", 0)
	_, err := client.FetchStatus(context.Background(), "f")
	assert.ErrorIs(t, err, ErrStatusUnavailable)
}

func TestFetchStatus_TransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewStatusClient(url, "s", 0)
	_, err := client.FetchStatus(context.Background(), "f")
	assert.ErrorIs(t, err, ErrStatusUnavailable)
}
