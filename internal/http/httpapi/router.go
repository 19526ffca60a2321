package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// Options configure the router.
type Options struct {
	Logger          infra.Logger
	RateLimitPerMin int
	StaticDir       string
}

// NewRouter builds the service's HTTP surface.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(opts.Logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/redecorations", func(r chi.Router) {
		create := r
		if opts.RateLimitPerMin > 0 {
			create = r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		create.Post("/", app.CreateRedecoration)
		r.Get("/", app.ListRecentRedecorations)
		r.Get("/{id}", app.GetRedecoration)
	})

	r.Get("/v1/users/{id}/redecorations", app.ListUserRedecorations)

	if opts.StaticDir != "" {
		fileServer := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	return r
}
