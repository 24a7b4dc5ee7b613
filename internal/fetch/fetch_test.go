// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niderhoff/scolar/pkg/types"
)

func testFetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "scolar-test/0.1",
			Retries:   2,
			Backoff:   10 * time.Millisecond,
		},
		Concurrency: 5,
	}
}

// recordSleeps replaces the backoff sleep with a recorder and restores
// it on test cleanup.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var intervals []time.Duration
	orig := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		intervals = append(intervals, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &intervals
}

func TestFetch_HTMLDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "scolar-test/0.1", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	res, err := client.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	doc, ok := res.(*HTMLDocument)
	require.True(t, ok)
	assert.Equal(t, ts.URL, doc.URL)
	assert.Contains(t, doc.HTML, "hello")
}

func TestFetch_RetriesOn500WithDoublingBackoff(t *testing.T) {
	intervals := recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *intervals)
}

func TestFetch_404NotRetried(t *testing.T) {
	intervals := recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.Error(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *intervals)
}

func TestFetch_429Retried(t *testing.T) {
	recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_ExhaustedRetriesFails(t *testing.T) {
	recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_RejectsNonHTMLContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestFetch_AcceptsXHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xhtml+xml")
		w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), testFetchConfig(), nil)
	_, err := client.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
}
