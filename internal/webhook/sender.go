package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrPermanentFailure marks a delivery the sender will not retry (4xx other
// than 429).
var ErrPermanentFailure = errors.New("permanent webhook failure")

// Sender posts JSON payloads with bounded exponential-backoff retry.
// 5xx, 429 and transport errors are retried up to maxRetries; any other 4xx
// fails immediately.
type Sender struct {
	client      *http.Client
	maxRetries  int
	backoffBase time.Duration
}

func NewSender(timeout time.Duration, maxRetries int, backoffBase time.Duration) *Sender {
	return &Sender{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
}

// Deliver posts payload to url, retrying with delay = base * 2^attempt.
// Returns the number of attempts made alongside any final error.
func (s *Sender) Deliver(ctx context.Context, url string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode webhook payload: %w", err)
	}

	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoffBase * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return attempts, ctx.Err()
			}
		}

		attempts++
		retryable, err := s.post(ctx, url, body)
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		if !retryable {
			return attempts, err
		}
		slog.Debug("webhook delivery attempt failed",
			"url", url, "attempt", attempts, "error", err)
	}

	return attempts, fmt.Errorf("webhook delivery exhausted %d attempts: %w", attempts, lastErr)
}

func (s *Sender) post(ctx context.Context, url string, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("%w: status %d", ErrPermanentFailure, resp.StatusCode)
	}
}
