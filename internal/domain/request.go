package domain

import "time"

// RequestStatus enumerates the lifecycle states of a redecoration request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the one-directional lifecycle:
// pending -> processing -> {completed | failed}.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// GenerationRequest encapsulates the lifecycle of one room redecoration.
// It is owned by the single pipeline execution that processes it; every
// status transition is persisted through the RequestRepository.
type GenerationRequest struct {
	ID             string
	UserID         string
	SourceImageURL string
	Style          string
	CustomPrompt   string
	UseMask        bool
	Status         RequestStatus
	ResultURL      string
	CreditsCharged int
	ErrorMessage   string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// MarkProcessing moves the request into the processing state.
func (r *GenerationRequest) MarkProcessing() bool {
	if !r.Status.CanTransitionTo(StatusProcessing) {
		return false
	}
	r.Status = StatusProcessing
	return true
}

// MarkCompleted records the hosted result and stamps completion time.
// ResultURL and ErrorMessage are mutually exclusive by construction.
func (r *GenerationRequest) MarkCompleted(resultURL string, now time.Time) bool {
	if !r.Status.CanTransitionTo(StatusCompleted) {
		return false
	}
	r.Status = StatusCompleted
	r.ResultURL = resultURL
	r.ErrorMessage = ""
	r.CompletedAt = &now
	return true
}

// MarkFailed records the failure reason and stamps completion time.
func (r *GenerationRequest) MarkFailed(reason string, now time.Time) bool {
	if !r.Status.CanTransitionTo(StatusFailed) {
		return false
	}
	r.Status = StatusFailed
	r.ErrorMessage = reason
	r.ResultURL = ""
	r.CompletedAt = &now
	return true
}
