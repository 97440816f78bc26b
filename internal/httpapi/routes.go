package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/game"
	"github.com/3bbing/friends-pyramid/internal/hub"
	"github.com/3bbing/friends-pyramid/internal/logging"
	"github.com/3bbing/friends-pyramid/internal/ws"
)

type Deps struct {
	Service   *game.Service
	Issuer    *auth.Issuer
	Hub       *hub.Hub
	Log       *zap.Logger
	PublicURL string
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(d.Log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Post("/api/teams", CreateTeam(d.Service, d.PublicURL, d.Log))
	r.Post("/api/teams/{id}/join", JoinTeam(d.Service, d.Issuer, d.Log))
	r.Get("/ws", ws.Handler(d.Service, d.Issuer, d.Hub, d.Log))

	// Joined players only
	r.Group(func(r chi.Router) {
		r.Use(d.Issuer.Middleware)
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/api/teams/{id}/invite.png", InviteQR(d.Service, d.PublicURL, d.Log))
		r.Get("/api/pools", Pools(d.Service, d.Log))
		r.Get("/api/state", State(d.Service, d.Log))
		r.Post("/api/action", Action(d.Service, d.Log))
	})
	return r
}
