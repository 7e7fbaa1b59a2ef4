package reference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quxat/internal/config"
)

// Client downloads an accreditation roster from its publisher. Roster hosts
// tend to throttle aggressively, so requests are paced and retried with
// backoff on 429/5xx.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	pace       *pacer
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ReferenceTimeoutMs) * time.Millisecond},
		pace:       newPacer(cfg.ReferenceRateLimitRPS),
	}
}

// Sync fetches the roster at url, verifies it parses into at least one entry,
// and replaces the configured reference file. Returns the entry count.
func (c *Client) Sync(ctx context.Context, url string) (int, error) {
	blob, err := c.fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	entries := ParseRoster(blob)
	if len(entries) == 0 {
		return 0, fmt.Errorf("roster at %s parsed to zero entries", url)
	}

	path := c.cfg.ReferencePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("missing roster url")
	}

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.pace.waitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("roster status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("roster fetch error: status=%d body=%s", resp.StatusCode, string(body))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("roster request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// pacer spaces requests out to at most rps per second.
type pacer struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func newPacer(rps int) *pacer {
	if rps <= 0 {
		rps = 1
	}
	return &pacer{interval: time.Second / time.Duration(rps)}
}

func (p *pacer) waitTurn() {
	p.mu.Lock()
	now := time.Now()
	scheduled := now
	if p.next.After(now) {
		scheduled = p.next
	}
	p.next = scheduled.Add(p.interval)
	p.mu.Unlock()

	if sleep := time.Until(scheduled); sleep > 0 {
		time.Sleep(sleep)
	}
}
