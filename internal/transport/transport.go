// Package transport builds the HTTP clients used to reach the generation services.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// RateLimitedTransport resends a request after the delay named by a 429 response's retry-after header. Responses
// without a usable retry-after header are returned to the caller unchanged.
type RateLimitedTransport struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

func WithRateLimiting(base http.RoundTripper, logger zerolog.Logger) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{base: base, logger: logger}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Keep the body so that it can be replayed
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		waitDuration := parseRetryAfter(resp.Header.Get("retry-after"), time.Now())
		if waitDuration <= 0 {
			return resp, nil
		}

		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		t.logger.Warn().Str("host", req.URL.Host).Dur("wait", waitDuration).Msg("Rate limited, waiting")
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(waitDuration):
		}
	}
}

// parseRetryAfter accepts either a number of seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := time.Parse(time.RFC1123, value); err == nil {
		return retryTime.Sub(now)
	}
	return 0
}
