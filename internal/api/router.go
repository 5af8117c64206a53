package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter registers all gemstone API endpoints.
//
// Session endpoints are the auth collaborator's webhook surface; the
// user-scoped endpoints are called by the app's store/ad/generation flows.
func NewRouter(h *HandlerProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Source-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.HealthHandler)

	r.Post("/session", h.SignInHandler)
	r.Delete("/session/{userId}", h.SignOutHandler)

	r.Route("/user/{userId}", func(r chi.Router) {
		r.Get("/balance", h.GetBalanceHandler)
		r.Post("/spend", h.SpendHandler)
		r.With(h.earnRateLimit).Post("/earn", h.EarnHandler)
		r.Post("/grant", h.GrantHandler)
		r.Get("/notification", h.GetNotificationHandler)
		r.Delete("/notification", h.ClearNotificationHandler)
	})

	return r
}
