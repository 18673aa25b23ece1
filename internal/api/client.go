package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sdpower/copilot-usage/internal/logger"
	"github.com/sdpower/copilot-usage/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	userAgent      = "waybar-ai-usage/copilot"
	timeout        = 10 * time.Second

	// Error bodies are echoed into tooltips; keep them short.
	maxErrorBody = 512
)

// Getter performs an authenticated GET and returns the decoded JSON body.
type Getter interface {
	Get(ctx context.Context, url, token string) (any, error)
}

type Client struct {
	client *http.Client
}

func NewClient() *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTP lets tests swap in a client with a shorter timeout.
func NewClientWithHTTP(c *http.Client) *Client {
	return &Client{client: c}
}

// Get returns the decoded body as map[string]any, []any or a scalar.
// Every failure is a types.RemoteError.
func (c *Client) Get(ctx context.Context, url, token string) (any, error) {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.RemoteError{URL: url, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("request failed", zap.String("url", url), zap.Error(err))
		return nil, types.RemoteError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	log.Debug("github api",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, types.RemoteError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, types.RemoteError{URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	return data, nil
}
