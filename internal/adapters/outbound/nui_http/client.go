package nui_http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

// maxErrorBody bounds how much of a failed response is kept for the log.
const maxErrorBody = 512

// Client posts panel commands to the host's callback endpoints:
// POST {baseURL}/{command} with a JSON body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	refresh    singleflight.Group
}

// NewClient builds a client. ratePerSec ≤ 0 disables rate limiting.
func NewClient(baseURL string, ratePerSec int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: lim,
	}
}

// Send delivers cmd. Concurrent requestRefresh sends collapse into one
// request; every caller gets that request's result.
func (c *Client) Send(ctx context.Context, cmd events.Command) error {
	if cmd.Name != events.CmdRequestRefresh {
		return c.post(ctx, cmd)
	}
	_, err, shared := c.refresh.Do(string(cmd.Name), func() (any, error) {
		return nil, c.post(ctx, cmd)
	})
	if shared {
		telemetry.Metrics.RefreshCollapsed.Inc()
	}
	return err
}

func (c *Client) post(ctx context.Context, cmd events.Command) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	data, err := cmd.JSON()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cmd.Name, err)
	}

	url := c.baseURL + "/" + string(cmd.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: status %d: %s", cmd.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	// the host's reply carries nothing the panel acts on
	_, _ = io.Copy(io.Discard, resp.Body)

	telemetry.Debugf("nui_http: POST /%s -> %d (%s)", cmd.Name, resp.StatusCode, time.Since(start))
	return nil
}
