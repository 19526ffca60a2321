package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// RequestRepositoryPG implements domain.RequestRepository.
type RequestRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a request repository backed by PostgreSQL.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepositoryPG {
	return &RequestRepositoryPG{pool: pool}
}

const requestColumns = `id, user_id, source_image_url, style, custom_prompt, use_mask, status, result_url, credits_charged, error_message, created_at, completed_at`

// Create inserts a new request record.
func (r *RequestRepositoryPG) Create(ctx context.Context, req *domain.GenerationRequest) error {
	query := `
INSERT INTO generation_requests (` + requestColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.UserID,
		req.SourceImageURL,
		req.Style,
		req.CustomPrompt,
		req.UseMask,
		req.Status,
		nullableString(req.ResultURL),
		req.CreditsCharged,
		nullableString(req.ErrorMessage),
		req.CreatedAt,
		req.CompletedAt,
	)
	return err
}

// Update persists the request's current state.
func (r *RequestRepositoryPG) Update(ctx context.Context, req *domain.GenerationRequest) error {
	query := `
UPDATE generation_requests
SET status = $2,
    result_url = $3,
    error_message = $4,
    completed_at = $5
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.Status,
		nullableString(req.ResultURL),
		nullableString(req.ErrorMessage),
		req.CompletedAt,
	)
	return err
}

// GetByID fetches a request by its identifier.
func (r *RequestRepositoryPG) GetByID(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM generation_requests WHERE id = $1;`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// GetByUser lists a user's requests, newest first.
func (r *RequestRepositoryPG) GetByUser(ctx context.Context, userID string, limit int) ([]domain.GenerationRequest, error) {
	query := `
SELECT ` + requestColumns + `
FROM generation_requests
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// GetRecent lists the most recent requests across all users.
func (r *RequestRepositoryPG) GetRecent(ctx context.Context, limit int) ([]domain.GenerationRequest, error) {
	query := `
SELECT ` + requestColumns + `
FROM generation_requests
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.GenerationRequest, error) {
	var out []domain.GenerationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.GenerationRequest, error) {
	var req domain.GenerationRequest
	var resultURL, errorMessage *string
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.SourceImageURL,
		&req.Style,
		&req.CustomPrompt,
		&req.UseMask,
		&req.Status,
		&resultURL,
		&req.CreditsCharged,
		&errorMessage,
		&req.CreatedAt,
		&req.CompletedAt,
	); err != nil {
		return nil, err
	}
	if resultURL != nil {
		req.ResultURL = *resultURL
	}
	if errorMessage != nil {
		req.ErrorMessage = *errorMessage
	}
	return &req, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
