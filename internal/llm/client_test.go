// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niderhoff/scolar/internal/httputil"
)

func chatServerResponse(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func testBackend(ts *httptest.Server) *OpenAIBackend {
	return &OpenAIBackend{
		APIKey:      "test-key",
		Model:       "gpt-4.1-mini",
		Temperature: 0.2,
		BaseURL:     ts.URL,
		Client:      ts.Client(),
		Retry:       httputil.Policy{Retries: 2, Backoff: time.Millisecond},
	}
}

func TestComplete_SendsPromptAndAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be helpful", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		fmt.Fprint(w, chatServerResponse("  the answer  "))
	}))
	defer ts.Close()

	got, err := testBackend(ts).Complete(context.Background(), "be helpful", "question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)
}

func TestComplete_RetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chatServerResponse("ok"))
	}))
	defer ts.Close()

	got, err := testBackend(ts).Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer ts.Close()

	_, err := testBackend(ts).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestComplete_EmptyCompletion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatServerResponse("   "))
	}))
	defer ts.Close()

	_, err := testBackend(ts).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestComplete_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	_, err := testBackend(ts).Complete(context.Background(), "s", "u")
	require.Error(t, err)
}
