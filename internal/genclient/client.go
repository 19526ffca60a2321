// Package genclient talks to the external image-generation API and re-hosts
// its output through the object store.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// Failure classification by upstream HTTP status. None of these are retried
// here; resubmission is the caller's decision.
var (
	ErrAuth           = errors.New("genclient: authentication rejected")
	ErrRateLimit      = errors.New("genclient: rate limited")
	ErrInvalidRequest = errors.New("genclient: invalid request")
	ErrUpstream       = errors.New("genclient: upstream failure")
	ErrUnknown        = errors.New("genclient: unexpected response")
)

// Options configure the client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client submits generation jobs over HTTP. Single attempt per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	store      domain.ObjectStore
}

// NewClient builds a Client that re-hosts results through store.
func NewClient(opts Options, store domain.ObjectStore) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		store:      store,
	}
}

// generationResponse is the versioned response schema of the generation API.
type generationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate submits the conforming image (and optional mask) plus prompt,
// verifies the returned image URL is reachable, downloads it, and stores the
// bytes under a fresh name in the "generated" category. The returned URL
// comes from the object store and may be absolute or root-relative.
func (c *Client) Generate(ctx context.Context, image, mask []byte, prompt string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("genclient: endpoint not configured")
	}
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidRequest)
	}

	body, contentType, err := buildForm(image, mask, prompt)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genclient: submit: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var out generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnknown, err)
	}
	if len(out.Data) == 0 || strings.TrimSpace(out.Data[0].URL) == "" {
		return "", fmt.Errorf("%w: missing image url", ErrUnknown)
	}
	resultURL := strings.TrimSpace(out.Data[0].URL)

	if err := c.verifyReachable(ctx, resultURL); err != nil {
		return "", err
	}
	data, err := c.download(ctx, resultURL)
	if err != nil {
		return "", err
	}

	filename := uuid.NewString() + ".png"
	hosted, err := c.store.Store(ctx, data, filename, "generated")
	if err != nil {
		return "", fmt.Errorf("genclient: store result: %w", err)
	}
	return hosted, nil
}

func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	detail := upstreamDetail(resp)
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: http 401%s", ErrAuth, detail)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http 429%s", ErrRateLimit, detail)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: http 400%s", ErrInvalidRequest, detail)
	case code >= 500:
		return fmt.Errorf("%w: http %d%s", ErrUpstream, code, detail)
	default:
		return fmt.Errorf("%w: http %d%s", ErrUnknown, code, detail)
	}
}

func upstreamDetail(resp *http.Response) string {
	var out generationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err != nil {
		return ""
	}
	if out.Error.Message == "" {
		return ""
	}
	return ": " + out.Error.Message
}

// verifyReachable HEAD-checks the upstream URL before trusting it.
func (c *Client) verifyReachable(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genclient: verify result url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: result url returned http %d", ErrUnknown, resp.StatusCode)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genclient: download result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: result download returned http %d", ErrUnknown, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genclient: read result: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty result body", ErrUnknown)
	}
	return data, nil
}

func buildForm(image, mask []byte, prompt string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if len(mask) > 0 {
		part, err = mw.CreateFormFile("mask", "mask.png")
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(mask); err != nil {
			return nil, "", err
		}
	}
	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
