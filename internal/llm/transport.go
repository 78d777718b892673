package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries     = 6
	defaultBaseDelay      = 2 * time.Second
	defaultAttemptTimeout = 45 * time.Second
)

// send executes one logical request against the API, retrying rate-limit
// and overload responses (429/503) and network-level failures with bounded
// exponential backoff. A Retry-After header is honored with a one second
// buffer and does not grow the backoff delay. Any other response, 2xx or
// not, is returned to the caller for classification. This is the only place
// in the pipeline that waits.
func (c *Client) send(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
	}

	delay := c.baseDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		status, header, respBody, err := c.attempt(ctx, method, endpoint, body)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			lastErr = err
			if attempt == c.maxRetries {
				break
			}
			slog.Warn("network error, retrying", "error", err, "delay", delay, "attempts_left", c.maxRetries-attempt)
			if err := sleep(ctx, delay); err != nil {
				return 0, nil, err
			}
			delay *= 2
			continue
		}

		if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
			return status, respBody, nil
		}
		if attempt == c.maxRetries {
			// Retries exhausted: hand the last response back for classification.
			return status, respBody, nil
		}

		wait := delay
		grow := true
		if ra := strings.TrimSpace(header.Get("Retry-After")); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil && secs >= 0 {
				wait = time.Duration(secs+1) * time.Second
				grow = false
			}
		}
		slog.Warn("rate limited, waiting before retry", "status", status, "wait", wait, "attempts_left", c.maxRetries-attempt)
		if err := sleep(ctx, wait); err != nil {
			return 0, nil, err
		}
		if grow {
			delay *= 2
		}
	}

	return 0, nil, &TransportError{Err: lastErr}
}

// attempt issues a single HTTP call bounded by the per-attempt timeout.
// A timeout is indistinguishable from any other network failure to the
// retry loop, unless the caller's context itself is done.
func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte) (int, http.Header, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
