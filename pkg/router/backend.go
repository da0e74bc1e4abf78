package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// maxAttempts bounds the transport-level retry loop for transient statuses.
const maxAttempts = 3

// isTransient reports whether a status warrants a transport-level retry
// before surfacing the failure to the router's caller.
func isTransient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// upstreamResult holds one backend response.
type upstreamResult struct {
	statusCode int
	body       []byte
}

// doBackendRequest POSTs a JSON body to a backend, retrying transient
// statuses and transport errors with linear backoff.
func (r *Router) doBackendRequest(ctx context.Context, baseURL, path string, headers map[string]string, body []byte) (*upstreamResult, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String()+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("router: backend request failed (attempt %d/%d): %v", attempt, maxAttempts, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if isTransient(resp.StatusCode) && attempt < maxAttempts {
			log.Printf("router: backend returned %d (attempt %d/%d), retrying", resp.StatusCode, attempt, maxAttempts)
			lastErr = fmt.Errorf("backend returned %d", resp.StatusCode)
			continue
		}

		return &upstreamResult{statusCode: resp.StatusCode, body: respBody}, nil
	}
	return nil, fmt.Errorf("backend unreachable after %d attempts: %w", maxAttempts, lastErr)
}
