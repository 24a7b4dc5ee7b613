// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Policy controls retry behavior for a request.
type Policy struct {
	// Retries is the number of retry attempts after the first failure.
	Retries int

	// Backoff is the delay before the first retry; it doubles after
	// each failed attempt.
	Backoff time.Duration
}

// RetryableStatus reports whether a response status justifies a retry:
// HTTP 429 and the 5xx range. Other 4xx statuses fail immediately.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request, retrying on transport errors and
// retryable statuses with exponential backoff: backoff, 2*backoff,
// 4*backoff, and so on.
//
// On each retryable response the body is drained and closed before
// sleeping. If the context is cancelled during a backoff wait the
// function returns ctx.Err(). After exhausting retries the last
// response (or transport error) is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, pol Policy) (*http.Response, error) {
	attempts := pol.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := pol.Backoff

	for attempt := 1; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil {
			if !RetryableStatus(resp.StatusCode) || attempt >= attempts {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else if attempt >= attempts {
			return nil, err
		}

		if backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
}
