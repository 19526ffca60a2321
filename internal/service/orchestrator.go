// Package service owns the redecoration request lifecycle: creation, credit
// debit, the image pipeline, and persistence of every status transition.
package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/conform"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pipeline"
	"server/internal/prompt"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxSourceBytes      = 32 << 20
)

// Conformer normalizes source images for the generation API.
type Conformer interface {
	Conform(data []byte) (*conform.Result, error)
}

// MaskGenerator produces an optional edit mask for the conforming image.
type MaskGenerator interface {
	Generate(ctx context.Context, image []byte, overrides map[string]any) ([]byte, error)
}

// ImageGenerator submits the pipeline output to the generation API and
// returns the hosted result URL.
type ImageGenerator interface {
	Generate(ctx context.Context, image, mask []byte, prompt string) (string, error)
}

// Options wire an Orchestrator.
type Options struct {
	Repo              domain.RequestRepository
	Ledger            domain.CreditLedger
	Logs              domain.RequestLogSink
	Conformer         Conformer
	Masks             MaskGenerator
	Generator         ImageGenerator
	Matcher           domain.ProductMatcher
	Runner            pipeline.Runner
	Logger            infra.Logger
	HTTPClient        *http.Client
	FetchTimeout      time.Duration
	CreditsPerRequest int
}

// Orchestrator drives each request from Pending to a terminal state.
type Orchestrator struct {
	repo      domain.RequestRepository
	ledger    domain.CreditLedger
	logs      domain.RequestLogSink
	conformer Conformer
	masks     MaskGenerator
	generator ImageGenerator
	matcher   domain.ProductMatcher
	runner    pipeline.Runner
	logger    infra.Logger
	client    *http.Client
	cost      int
}

// New builds an Orchestrator from Options, applying defaults for the HTTP
// client and per-request cost.
func New(opts Options) *Orchestrator {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.FetchTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	cost := opts.CreditsPerRequest
	if cost <= 0 {
		cost = 1
	}
	runner := opts.Runner
	if runner == nil {
		runner = pipeline.SyncRunner{}
	}
	return &Orchestrator{
		repo:      opts.Repo,
		ledger:    opts.Ledger,
		logs:      opts.Logs,
		conformer: opts.Conformer,
		masks:     opts.Masks,
		generator: opts.Generator,
		matcher:   opts.Matcher,
		runner:    runner,
		logger:    opts.Logger,
		client:    client,
		cost:      cost,
	}
}

// CreateAndProcess persists a new Pending request and submits its pipeline
// for background execution. It returns as soon as the request is durable; the
// caller polls GetByID to observe progress.
func (o *Orchestrator) CreateAndProcess(ctx context.Context, userID, styleLabel, sourceImageURL, customPrompt string, useMask bool) (*domain.GenerationRequest, error) {
	userID = strings.TrimSpace(userID)
	sourceImageURL = strings.TrimSpace(sourceImageURL)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if sourceImageURL == "" {
		return nil, fmt.Errorf("%w: source image url is required", domain.ErrInvalidInput)
	}

	req := &domain.GenerationRequest{
		ID:             uuid.NewString(),
		UserID:         userID,
		SourceImageURL: sourceImageURL,
		Style:          strings.TrimSpace(styleLabel),
		CustomPrompt:   strings.TrimSpace(customPrompt),
		UseMask:        useMask,
		Status:         domain.StatusPending,
		CreditsCharged: o.cost,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// The background unit of work owns req exclusively from here on; hand the
	// caller a snapshot.
	snapshot := *req
	o.runner.Submit(func() {
		o.process(context.Background(), req)
	})
	return &snapshot, nil
}

// GetByID reads a single request.
func (o *Orchestrator) GetByID(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: request id is required", domain.ErrInvalidInput)
	}
	return o.repo.GetByID(ctx, id)
}

// GetHistory lists a user's recent requests, newest first.
func (o *Orchestrator) GetHistory(ctx context.Context, userID string, limit int) ([]domain.GenerationRequest, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return o.repo.GetByUser(ctx, userID, limit)
}

// GetRecent lists the most recent requests across all users, newest first.
func (o *Orchestrator) GetRecent(ctx context.Context, limit int) ([]domain.GenerationRequest, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return o.repo.GetRecent(ctx, limit)
}

// process runs the full pipeline for one request. Steps execute strictly in
// order; the first fatal failure moves the request to Failed. Mask generation
// is the one non-fatal step.
func (o *Orchestrator) process(ctx context.Context, req *domain.GenerationRequest) {
	req.MarkProcessing()
	o.persist(ctx, req)
	o.logs.Log(ctx, req.ID, domain.SeverityInfo, "processing started")

	ok, err := o.ledger.Debit(ctx, req.UserID, o.cost)
	if err != nil {
		o.fail(ctx, req, fmt.Sprintf("credit deduction failed: %v", err))
		return
	}
	if !ok {
		o.fail(ctx, req, "credit deduction failed: insufficient credits")
		return
	}
	// Charged from this point on. Failed requests keep their charge; refunds
	// are handled out of band.

	instruction := prompt.Resolve(req.Style, req.CustomPrompt)

	source, err := o.fetchSource(ctx, req.SourceImageURL)
	if err != nil {
		o.fail(ctx, req, err.Error())
		return
	}

	conformed, err := o.conformer.Conform(source)
	if err != nil {
		o.fail(ctx, req, fmt.Sprintf("image conformance failed: %v", err))
		return
	}

	var maskBytes []byte
	if req.UseMask {
		// The mask generator gets its own copy of the buffer.
		input := append([]byte(nil), conformed.PNG...)
		maskBytes, err = o.masks.Generate(ctx, input, nil)
		if err != nil {
			maskBytes = nil
			o.logs.Log(ctx, req.ID, domain.SeverityWarning, fmt.Sprintf("mask generation failed, continuing without mask: %v", err))
			o.logger.Warn().Err(err).Str("request_id", req.ID).Msg("mask generation failed")
		}
	}

	resultURL, err := o.generator.Generate(ctx, conformed.PNG, maskBytes, instruction)
	if err != nil {
		o.fail(ctx, req, fmt.Sprintf("image generation failed: %v", err))
		return
	}

	req.MarkCompleted(resultURL, time.Now().UTC())
	o.persist(ctx, req)
	o.logs.Log(ctx, req.ID, domain.SeverityInfo, "completed")
	o.logger.Info().Str("request_id", req.ID).Str("result", resultURL).Msg("request completed")

	o.dispatchMatching(ctx, req.ID, resultURL)
}

// dispatchMatching hands the finished image to product matching. Failures are
// logged and never revisit the request's terminal state.
func (o *Orchestrator) dispatchMatching(ctx context.Context, requestID, imageURL string) {
	if o.matcher == nil {
		return
	}
	matches, err := o.matcher.DetectAndMatch(ctx, imageURL)
	if err != nil {
		o.logs.Log(ctx, requestID, domain.SeverityWarning, fmt.Sprintf("product matching failed: %v", err))
		o.logger.Warn().Err(err).Str("request_id", requestID).Msg("product matching failed")
		return
	}
	o.logger.Info().Str("request_id", requestID).Int("matches", len(matches)).Msg("product matching dispatched")
}

// fetchSource downloads the user's room photo, rejecting non-2xx responses,
// non-image payloads, and empty bodies.
func (o *Orchestrator) fetchSource(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source image fetch failed: %v", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source image fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source image fetch returned http %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("source is not an image (content type %q)", ct)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("source image fetch failed: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("source image is empty")
	}
	return data, nil
}

func (o *Orchestrator) fail(ctx context.Context, req *domain.GenerationRequest, reason string) {
	req.MarkFailed(reason, time.Now().UTC())
	o.persist(ctx, req)
	o.logs.Log(ctx, req.ID, domain.SeverityError, reason)
	o.logger.Error().Str("request_id", req.ID).Str("reason", reason).Msg("request failed")
}

func (o *Orchestrator) persist(ctx context.Context, req *domain.GenerationRequest) {
	if err := o.repo.Update(ctx, req); err != nil {
		o.logger.Error().Err(err).Str("request_id", req.ID).Msg("persist request state failed")
	}
}
