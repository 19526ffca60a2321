package domain

import "time"

// LogSeverity enumerates per-request log levels.
type LogSeverity string

const (
	SeverityInfo    LogSeverity = "info"
	SeverityWarning LogSeverity = "warning"
	SeverityError   LogSeverity = "error"
)

// LogEvent is an append-only record of one pipeline step outcome. Events are
// written through the RequestLogSink and never mutated or deleted.
type LogEvent struct {
	RequestID string
	Severity  LogSeverity
	Message   string
	CreatedAt time.Time
}
