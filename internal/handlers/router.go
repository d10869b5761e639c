package handlers

import (
	"net/http"
	"time"

	"scorer-backend/internal/metrics"
	"scorer-backend/internal/middleware"
	"scorer-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterConfig carries everything the HTTP surface needs
type RouterConfig struct {
	UserService    *services.UserService
	FriendService  *services.FriendService
	MatchService   *services.MatchService
	Hub            *services.WSHub
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the chi router with middleware and all routes
func NewRouter(cfg RouterConfig) http.Handler {
	userHandler := NewUserHandler(cfg.UserService)
	friendHandler := NewFriendHandler(cfg.FriendService)
	matchHandler := NewMatchHandler(cfg.MatchService)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.UserService, cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	r.Use(middleware.Metrics)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", wsHandler.HandleWebSocket)

	authenticated := middleware.Authenticate(cfg.UserService)
	registered := middleware.RequireRegistered(cfg.UserService)

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		r.Get("/health", Liveness)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/health", userHandler.Health)
			r.With(authenticated).Post("/register", userHandler.Register)
			r.With(authenticated, registered).Get("/me", userHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated, registered)

			r.Route("/friends", func(r chi.Router) {
				r.Post("/request", friendHandler.SendRequest)
				r.Post("/accept", friendHandler.AcceptRequest)
				r.Post("/decline", friendHandler.DeclineRequest)
				r.Get("/list", friendHandler.List)
				r.Get("/requests/received", friendHandler.Received)
				r.Get("/requests/sent", friendHandler.Sent)
				r.Get("/search", friendHandler.Search)
				r.Delete("/remove/{friend_id}", friendHandler.Remove)
			})

			r.Route("/matches", func(r chi.Router) {
				r.Post("/create", matchHandler.Create)
				r.Get("/my-matches", matchHandler.MyMatches)
				r.Get("/pending-validation", matchHandler.PendingValidation)
				r.Get("/stats", matchHandler.Stats)
				r.Get("/leaderboard", matchHandler.Leaderboard)
				r.Get("/{match_id}", matchHandler.Get)
				r.Post("/{match_id}/validate", matchHandler.Validate)
				r.Post("/{match_id}/players", matchHandler.AddPlayer)
				r.Post("/{match_id}/skip-validation", matchHandler.SkipValidation)
			})
		})
	})

	return r
}
