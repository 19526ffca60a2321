package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type createRequestPayload struct {
	UserID         string `json:"user_id"`
	Style          string `json:"style"`
	SourceImageURL string `json:"source_image_url"`
	CustomPrompt   string `json:"custom_prompt"`
	UseMask        bool   `json:"use_mask"`
}

type requestResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Style          string     `json:"style"`
	SourceImageURL string     `json:"source_image_url"`
	UseMask        bool       `json:"use_mask"`
	Status         string     `json:"status"`
	ResultURL      string     `json:"result_url,omitempty"`
	CreditsCharged int        `json:"credits_charged"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func toResponse(req *domain.GenerationRequest) requestResponse {
	return requestResponse{
		ID:             req.ID,
		UserID:         req.UserID,
		Style:          req.Style,
		SourceImageURL: req.SourceImageURL,
		UseMask:        req.UseMask,
		Status:         string(req.Status),
		ResultURL:      req.ResultURL,
		CreditsCharged: req.CreditsCharged,
		Error:          req.ErrorMessage,
		CreatedAt:      req.CreatedAt,
		CompletedAt:    req.CompletedAt,
	}
}

// CreateRedecoration accepts a new request and starts its pipeline.
func (a *App) CreateRedecoration(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req, err := a.Service.CreateAndProcess(r.Context(), payload.UserID, payload.Style, payload.SourceImageURL, payload.CustomPrompt, payload.UseMask)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("create redecoration failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create request")
		return
	}
	a.json(w, http.StatusAccepted, toResponse(req))
}

// GetRedecoration returns one request; clients poll it to observe the
// pending -> processing -> terminal transition.
func (a *App) GetRedecoration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := a.Service.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "request not found")
		case errors.Is(err, domain.ErrInvalidInput):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			a.Logger.Error().Err(err).Str("request_id", id).Msg("get redecoration failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load request")
		}
		return
	}
	a.json(w, http.StatusOK, toResponse(req))
}

// ListRecentRedecorations returns the latest requests across all users.
func (a *App) ListRecentRedecorations(w http.ResponseWriter, r *http.Request) {
	history, err := a.Service.GetRecent(r.Context(), limitParam(r))
	if err != nil {
		a.Logger.Error().Err(err).Msg("list recent redecorations failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load requests")
		return
	}
	out := make([]requestResponse, 0, len(history))
	for i := range history {
		out = append(out, toResponse(&history[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"requests": out})
}

// ListUserRedecorations returns a user's request history.
func (a *App) ListUserRedecorations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	limit := limitParam(r)
	history, err := a.Service.GetHistory(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list redecorations failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	out := make([]requestResponse, 0, len(history))
	for i := range history {
		out = append(out, toResponse(&history[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"requests": out})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
