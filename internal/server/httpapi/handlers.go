package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/beamhq/beam-core/internal/auth"
	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/oauth"
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) protectedResource(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, auth.ProtectedResourceMetadata{
		Resource:               s.cfg.ExternalURL,
		AuthorizationServers:   []string{s.cfg.AuthServerURL},
		BearerMethodsSupported: []string{"header"},
	})
}

func (s *Server) authorizationServer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, auth.AuthorizationServerMetadata{
		Issuer:                        s.cfg.AuthServerURL,
		AuthorizationEndpoint:         s.cfg.AuthServerURL + "/authorize",
		TokenEndpoint:                 s.cfg.AuthServerURL + "/token",
		ResponseTypesSupported:        []string{"code"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported: []string{"S256"},
	})
}

type meResponse struct {
	Tenant    string `json:"tenant"`
	SessionID string `json:"session_id"`
	UserEmail string `json:"user_email,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	rc, _ := auth.RequestContextFrom(r.Context())
	resp := meResponse{Tenant: rc.Tenant.Slug}
	if rc.Session != nil {
		resp.SessionID = rc.Session.ID
	}
	if rc.User != nil {
		resp.UserEmail = rc.User.Email
	}
	if rc.Membership != nil {
		resp.Role = string(rc.Membership.Role)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	rc, _ := auth.RequestContextFrom(r.Context())
	if rc.Session == nil {
		writeError(w, http.StatusBadRequest, "no_session", "no session to destroy")
		return
	}
	if err := s.sessions.Destroy(r.Context(), rc.Session.ID); err != nil {
		s.log.Error("session destroy failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) revokeUserSessions(w http.ResponseWriter, r *http.Request) {
	rc, _ := auth.RequestContextFrom(r.Context())
	userID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed user id")
		return
	}
	n, err := s.sessions.DestroyByUser(r.Context(), rc.Tenant.ID, userID)
	if err != nil {
		s.log.Error("bulk session revoke failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

type completeElicitationRequest struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

func (s *Server) completeElicitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req completeElicitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "access_token is required")
		return
	}
	err := s.oauth.CompleteElicitation(r.Context(), id, oauth.RawTokens{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Scopes:       req.Scopes,
		ExpiresAt:    req.ExpiresAt,
	})
	s.writeElicitationResult(w, id, err)
}

func (s *Server) cancelElicitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.writeElicitationResult(w, id, s.oauth.CancelElicitation(r.Context(), id))
}

func (s *Server) writeElicitationResult(w http.ResponseWriter, id string, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "unknown elicitation")
	case errors.Is(err, errs.ErrElicitationTerminal):
		writeError(w, http.StatusConflict, "already_terminal", "elicitation already settled")
	case errors.Is(err, errs.ErrElicitationExpired):
		writeError(w, http.StatusGone, "expired", "elicitation expired")
	default:
		s.log.Error("elicitation update failed", zap.String("elicitation", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
