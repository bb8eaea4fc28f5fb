package httpapi

import (
	"net/http"

	"agentchat/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg config.Config, h Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(authR chi.Router) {
			authR.Post("/register", h.Register)
			authR.Post("/login", h.Login)
			authR.With(h.RequireUser).Get("/me", h.Me)
		})

		v1.Route("/chat", func(chatR chi.Router) {
			chatR.Use(h.RequireUser)
			chatR.Get("/models", h.ListModels)
			chatR.Post("/", h.Chat)
			chatR.Get("/history/{sessionID}", h.ChatHistory)
			chatR.Get("/sessions", h.ListSessions)
			chatR.Post("/new-session", h.NewSession)
		})
	})

	return r
}
