package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nihilism/server/internal/config"
	"nihilism/server/internal/engine"
)

// corsMiddleware allows the configured origins; "*" allows any
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := allowedOrigin(allowed, r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "300")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowedOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(a, origin) {
			return origin
		}
	}
	return ""
}

// NewRouter wires the game API onto a chi router
func NewRouter(cfg config.ServerConfig, store *engine.SessionStore, hub *SessionHub) *chi.Mux {
	r := chi.NewRouter()

	// Request logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("REQUEST: %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	})
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	h := NewHandlers(store, hub, cfg.AllowedOrigins)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/game", func(r chi.Router) {
			r.Post("/new", h.NewGame)
			r.Get("/list", h.ListGames)
			r.Get("/load/{player_id}", h.LoadGame)
			r.Post("/save/{player_id}", h.SaveGame)

			r.Route("/{player_id}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Delete("/", h.DeleteGame)
				r.Post("/start", h.StartGame)
				r.Post("/choice", h.MakeChoice)
				r.Post("/reset", h.ResetLoop)
				r.Get("/ending", h.GetEnding)
				r.Get("/events", h.Events)
			})
		})
	})

	return r
}
