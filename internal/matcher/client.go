// Package matcher calls the product-matching service with finished images.
package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

// Options configure the matcher client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client implements domain.ProductMatcher over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a matcher client, or nil when no endpoint is configured
// (the orchestrator treats a nil matcher as "matching disabled").
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: client, baseURL: base}
}

type matchResponse struct {
	Matches []struct {
		ProductID string  `json:"product_id"`
		Score     float64 `json:"score"`
	} `json:"matches"`
}

// DetectAndMatch submits an image URL and returns scored product matches.
func (c *Client) DetectAndMatch(ctx context.Context, imageURL string) ([]domain.ProductMatch, error) {
	if c == nil {
		return nil, errors.New("matcher: client not configured")
	}
	body, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/match", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matcher: http %d", resp.StatusCode)
	}
	var out matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("matcher: decode response: %w", err)
	}
	matches := make([]domain.ProductMatch, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, domain.ProductMatch{ProductID: m.ProductID, Score: m.Score})
	}
	return matches, nil
}

var _ domain.ProductMatcher = (*Client)(nil)
