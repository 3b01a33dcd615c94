// Package httpapi serves the platform's HTTP surface: well-known OAuth
// metadata, health and metrics, and the authenticated session endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beamhq/beam-core/internal/auth"
	"github.com/beamhq/beam-core/internal/limiter"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/oauth"
	"github.com/beamhq/beam-core/internal/session"
)

// Config carries the externally visible identity of this deployment.
type Config struct {
	// ExternalURL is the public base URL, advertised as the protected
	// resource identifier.
	ExternalURL string
	// AuthServerURL is the authorization server advertised in metadata.
	AuthServerURL string
}

// Server composes the HTTP surface from the security core's collaborators.
type Server struct {
	cfg      Config
	log      *zap.Logger
	builder  *auth.ContextBuilder
	authn    *auth.Middleware
	sessions session.Store
	oauth    *oauth.Service
	limiter  limiter.Limiter
}

// New wires a server. The limiter may be nil to disable rate limiting.
func New(cfg Config, log *zap.Logger, builder *auth.ContextBuilder, authn *auth.Middleware, sessions session.Store, oauthSvc *oauth.Service, lim limiter.Limiter) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		builder:  builder,
		authn:    authn,
		sessions: sessions,
		oauth:    oauthSvc,
		limiter:  lim,
	}
}

// Handler builds the router. Well-known metadata, health and metrics stay
// outside tenant resolution; everything under /api is tenant-scoped.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recovery)
	r.Use(s.logging)
	r.Use(s.measure)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get(auth.ProtectedResourcePath, s.protectedResource)
	r.Get(auth.AuthorizationServerPath, s.authorizationServer)

	// Completion and cancellation are called by the provider-integration
	// collaborator, not by end-user clients.
	r.Route("/internal/elicitations/{id}", func(r chi.Router) {
		r.Post("/complete", s.completeElicitation)
		r.Post("/cancel", s.cancelElicitation)
	})

	// Tenant-scoped routes are reachable two ways: directly, for subdomain
	// and custom-domain addressing, and under /tenant/{slug} for path
	// addressing. Both pass through resolution and rate limiting.
	r.Group(func(r chi.Router) {
		r.Use(s.withTenant)
		r.Use(s.rateLimit)
		s.apiRoutes(r)
	})
	r.Route("/tenant/{slug}", func(r chi.Router) {
		r.Use(s.withTenant)
		r.Use(s.rateLimit)
		s.apiRoutes(r)
	})

	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	r.With(s.requireAuth()).Get("/api/me", s.me)
	r.With(s.requireAuth()).Delete("/api/session", s.logout)
	r.With(s.requireAuth(model.RoleAdmin, model.RoleOwner)).
		Delete("/api/users/{id}/sessions", s.revokeUserSessions)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
