package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/infra"
)

// LogSinkPG implements domain.RequestLogSink over PostgreSQL. Writes are
// best-effort: a failed insert is reported to the process logger and
// swallowed so the pipeline never observes it.
type LogSinkPG struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

// NewLogSink creates a request log sink backed by PostgreSQL.
func NewLogSink(pool *pgxpool.Pool, logger infra.Logger) *LogSinkPG {
	return &LogSinkPG{pool: pool, logger: logger}
}

// Log appends one event to the request's log stream.
func (s *LogSinkPG) Log(ctx context.Context, requestID string, severity domain.LogSeverity, message string) {
	query := `
INSERT INTO request_logs (request_id, severity, message)
VALUES ($1, $2, $3);
`
	if _, err := s.pool.Exec(ctx, query, requestID, severity, message); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("append request log failed")
	}
}

// ListByRequest returns a request's log stream in insertion order.
func (s *LogSinkPG) ListByRequest(ctx context.Context, requestID string, limit int) ([]domain.LogEvent, error) {
	query := `
SELECT request_id, severity, message, created_at
FROM request_logs
WHERE request_id = $1
ORDER BY created_at ASC
LIMIT $2;
`
	rows, err := s.pool.Query(ctx, query, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LogEvent
	for rows.Next() {
		var ev domain.LogEvent
		if err := rows.Scan(&ev.RequestID, &ev.Severity, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
