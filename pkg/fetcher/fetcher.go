// Package fetcher is an HTTP GET client that retries transient failures with
// exponential backoff.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Config holds the client settings. Zero values get defaults: 10m timeout,
// 3 retries, 500ms initial backoff capped at 10s.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	UserAgent      string
	Transport      http.RoundTripper
}

type Fetcher struct {
	client         *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string

	// sleep waits between attempts; tests replace it.
	sleep func(context.Context, time.Duration) error
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tagcount"
	}
	return &Fetcher{
		client:         &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		sleep:          sleepContext,
	}
}

// Get issues a GET and returns the first 2xx response. Transport errors and
// 429/5xx responses are retried; any other status fails immediately.
// The caller must close the response body.
func (f *Fetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, backoff(f.initialBackoff, attempt-1, f.maxBackoff)); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to make HTTP request: %w", err)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
		if !retryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", f.maxRetries+1, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(initial time.Duration, attempt int, ceiling time.Duration) time.Duration {
	d := initial << attempt
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
