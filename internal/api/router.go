package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router assembles the HTTP surface. metricsHandler and corsOrigins are
// optional; nil and empty disable them.
func (s *Server) Router(metricsHandler http.Handler, corsOrigins []string, requestTimer func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if requestTimer != nil {
		r.Use(requestTimer)
	}
	if len(corsOrigins) > 0 {
		r.Use(corsMiddleware(corsOrigins))
	}

	r.Get("/health", s.handleHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/telegram", s.handleTelegramAuth)

		r.Route("/nickname", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/suggestions", s.handleSuggestions)
			r.Post("/reserve", s.handleReserve)
			r.Post("/generate", s.handleGenerate)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)
			r.Patch("/", s.handleUpdateProfile)
			r.Post("/photo", s.handleUploadPhoto)
		})
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Telegram-Init-Data")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
