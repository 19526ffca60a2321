package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
)

// RedecorationService is the orchestrator surface the handlers consume.
type RedecorationService interface {
	CreateAndProcess(ctx context.Context, userID, styleLabel, sourceImageURL, customPrompt string, useMask bool) (*domain.GenerationRequest, error)
	GetByID(ctx context.Context, id string) (*domain.GenerationRequest, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]domain.GenerationRequest, error)
	GetRecent(ctx context.Context, limit int) ([]domain.GenerationRequest, error)
}

// App carries handler dependencies.
type App struct {
	Service RedecorationService
	Logger  infra.Logger
}

// NewApp creates the handler set.
func NewApp(service RedecorationService, logger infra.Logger) *App {
	return &App{Service: service, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
