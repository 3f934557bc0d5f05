package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"idverify/internal/handlers"
	"idverify/internal/metrics"
	"idverify/internal/middleware"
)

func RegisterRouter(sessions *handlers.Sessions, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Get("/healthz", handlers.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", sessions.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.End)
			r.Put("/record", sessions.UpdateRecord)
			r.Post("/documents", sessions.UploadDocument)
			r.Post("/prompt/confirm", sessions.Confirm)
			r.Post("/prompt/cancel", sessions.Cancel)
		})
	})
	return r
}
