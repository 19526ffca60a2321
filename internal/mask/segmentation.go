package mask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SegmentationOptions configure the remote segmentation client.
type SegmentationOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// SegmentationClient calls the external room-segmentation service.
type SegmentationClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewSegmentationClient returns a client, or nil when no endpoint is
// configured (callers fall back to the heuristic strategy).
func NewSegmentationClient(opts SegmentationOptions) *SegmentationClient {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &SegmentationClient{httpClient: client, baseURL: base}
}

// segmentationResponse is the versioned wire schema of the segmentation
// service. Coordinates are pixels in the submitted image.
type segmentationResponse struct {
	Version string   `json:"version"`
	Regions []Region `json:"regions"`
}

// Region is one detected area with its semantic class and confidence.
type Region struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Segment submits PNG bytes and returns the detected regions.
func (c *SegmentationClient) Segment(ctx context.Context, image []byte) ([]Region, error) {
	if c == nil {
		return nil, errors.New("segmentation: client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/segment", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segmentation: http %d", resp.StatusCode)
	}
	var out segmentationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("segmentation: decode response: %w", err)
	}
	if out.Version != "" && out.Version != "v1" {
		return nil, fmt.Errorf("segmentation: unsupported schema version %q", out.Version)
	}
	return out.Regions, nil
}
