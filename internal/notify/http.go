package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manav03panchal/medtrack/internal/config"
)

// userAgent is sent with every webhook request.
const userAgent = "medtrack/1.0"

// HTTPClient posts payloads with retry on rate limits and server errors.
type HTTPClient struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPClient creates a client from the notify configuration.
func NewHTTPClient(cfg config.NotifyConfig) *HTTPClient {
	return &HTTPClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Duration   time.Duration
	Attempts   int
	Error      error
}

// backoff returns the wait before the given retry; attempt 1 is the first retry.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	return c.retryDelay << (attempt - 1)
}

// Send POSTs body to url, retrying up to maxRetries times.
func (c *HTTPClient) Send(ctx context.Context, url, contentType string, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		if attempt > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(c.backoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("failed to create request: %w", err)
			return result
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			result.Error = fmt.Errorf("request failed: %w", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		result.StatusCode = resp.StatusCode

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = fmt.Errorf("rate limited (HTTP 429)")
		case resp.StatusCode >= 500:
			result.Error = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, bodyBytes)
		default:
			// Client errors are not retried.
			result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, bodyBytes)
			return result
		}
	}

	return result
}
