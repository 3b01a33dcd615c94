package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/metrics"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
	"github.com/beamhq/beam-core/internal/session"
	"github.com/beamhq/beam-core/internal/vault"
)

// Token is a decrypted third-party access token handed to photon code. The
// refresh token never leaves the grant store.
type Token struct {
	Provider    string
	AccessToken string
	Scopes      []string
	ExpiresAt   time.Time
}

// RawTokens carries plaintext tokens from the provider-integration
// collaborator into the grant store, where they are encrypted at rest.
type RawTokens struct {
	AccessToken  string
	RefreshToken string
	Scopes       []string
	ExpiresAt    time.Time
}

// Service owns the grant and elicitation lifecycle. It is the only component
// that passes secrets through the vault.
type Service struct {
	grants       repository.GrantStore
	elicitations repository.ElicitationStore
	sessions     session.Store
	vault        vault.Vault
	providers    map[string]Provider
	ttl          time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// ServiceOption tweaks a Service.
type ServiceOption func(*Service)

// WithElicitationTTL overrides the pending-elicitation deadline.
func WithElicitationTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires the service's collaborators. Providers are indexed by name.
func NewService(grants repository.GrantStore, elicitations repository.ElicitationStore, sessions session.Store, v vault.Vault, providers []Provider, log *zap.Logger, opts ...ServiceOption) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}
	s := &Service{
		grants:       grants,
		elicitations: elicitations,
		sessions:     sessions,
		vault:        v,
		providers:    byName,
		ttl:          DefaultElicitationTTL,
		now:          time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requestToken implements the grant-or-elicit decision for one photon call.
func (s *Service) requestToken(ctx context.Context, c *Context, provider string, scopes []string) (*Token, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("oauth: unknown provider %q", provider)
	}

	grant, err := s.grants.Find(ctx, c.tenant.ID, c.photonID, provider, c.userID)
	switch {
	case err == nil:
		if tok, ok := s.usableToken(ctx, c.tenant.ID, grant, scopes); ok {
			return tok, nil
		}
		// Grant expired or under-scoped: fall through to a fresh elicitation.
	case errors.Is(err, errs.ErrNotFound):
	default:
		return nil, fmt.Errorf("oauth: look up grant: %w", err)
	}

	return nil, s.raiseElicitation(ctx, c, p, scopes)
}

// usableToken decrypts the grant's access token when it still covers the
// requested scopes and has not expired.
func (s *Service) usableToken(ctx context.Context, tenantID uuid.UUID, grant *model.PhotonGrant, scopes []string) (*Token, bool) {
	if !grant.TokenExpiresAt.IsZero() && !grant.TokenExpiresAt.After(s.now()) {
		return nil, false
	}
	if !grant.HasScopes(scopes) {
		return nil, false
	}
	plaintext, err := s.vault.Decrypt(ctx, tenantID, grant.AccessTokenEncrypted)
	if err != nil {
		// Never hand photon code garbage: a vault failure on this ciphertext
		// is fatal for the grant, so re-elicit instead.
		s.log.Error("grant decryption failed",
			zap.String("tenant", tenantID.String()),
			zap.String("provider", grant.Provider),
			zap.Error(err))
		return nil, false
	}
	return &Token{
		Provider:    grant.Provider,
		AccessToken: plaintext,
		Scopes:      grant.Scopes,
		ExpiresAt:   grant.TokenExpiresAt,
	}, true
}

// raiseElicitation records a pending request and returns the typed signal.
func (s *Service) raiseElicitation(ctx context.Context, c *Context, p Provider, scopes []string) error {
	if c.session == nil {
		return fmt.Errorf("oauth: elicitation requires an active session")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("oauth: generate elicitation id: %w", err)
	}
	now := s.now()
	e := &model.ElicitationRequest{
		ID:             id.String(),
		SessionID:      c.session.ID,
		PhotonID:       c.photonID,
		Provider:       p.Name,
		RequiredScopes: scopes,
		Status:         model.ElicitationPending,
		RedirectURI:    p.RedirectURI,
		CodeVerifier:   oauth2.GenerateVerifier(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.elicitations.Create(ctx, e); err != nil {
		return fmt.Errorf("oauth: create elicitation: %w", err)
	}

	metrics.Elicitations.WithLabelValues("raised").Inc()
	s.log.Info("elicitation raised",
		zap.String("elicitation", e.ID),
		zap.String("tenant", c.tenant.ID.String()),
		zap.String("photon", c.photonID),
		zap.String("provider", p.Name))

	return &ElicitationRequiredError{
		ElicitationID:    e.ID,
		AuthorizationURL: p.authCodeURL(e.ID, e.CodeVerifier, scopes),
		Provider:         p.Name,
		Scopes:           scopes,
		Message:          fmt.Sprintf("Authorize %s access to continue", p.Name),
	}
}

// CompleteElicitation is called by the provider-integration collaborator
// after it exchanged the authorization code. The grant is persisted before
// the elicitation is marked completed: a vault or store failure leaves the
// request pending and retryable, while the atomic status transition keeps
// the completed marking exactly-once under concurrent callbacks.
func (s *Service) CompleteElicitation(ctx context.Context, elicitationID string, raw RawTokens) error {
	e, err := s.elicitations.Get(ctx, elicitationID)
	if err != nil {
		return fmt.Errorf("oauth: load elicitation: %w", err)
	}
	if e.Status.Terminal() {
		return errs.ErrElicitationTerminal
	}
	if e.ExpiresAt.Before(s.now()) {
		// Mark it expired on the way out; a concurrent sweep doing the same
		// is harmless.
		if terr := s.elicitations.Transition(ctx, e.ID, model.ElicitationExpired); terr != nil && !errors.Is(terr, errs.ErrElicitationTerminal) {
			return fmt.Errorf("oauth: expire elicitation: %w", terr)
		}
		metrics.Elicitations.WithLabelValues("expired").Inc()
		return errs.ErrElicitationExpired
	}

	// The session binds the elicitation to its tenant and user.
	sess, err := s.sessions.Get(ctx, e.SessionID)
	if err != nil {
		return fmt.Errorf("oauth: elicitation session gone: %w", err)
	}

	accessCT, err := s.vault.Encrypt(ctx, sess.TenantID, raw.AccessToken)
	if err != nil {
		return fmt.Errorf("oauth: encrypt access token: %w", err)
	}
	var refreshCT string
	if raw.RefreshToken != "" {
		refreshCT, err = s.vault.Encrypt(ctx, sess.TenantID, raw.RefreshToken)
		if err != nil {
			return fmt.Errorf("oauth: encrypt refresh token: %w", err)
		}
	}

	scopes := raw.Scopes
	if len(scopes) == 0 {
		scopes = e.RequiredScopes
	}
	grant := &model.PhotonGrant{
		TenantID:              sess.TenantID,
		UserID:                sess.UserID,
		PhotonID:              e.PhotonID,
		Provider:              e.Provider,
		Scopes:                scopes,
		AccessTokenEncrypted:  accessCT,
		RefreshTokenEncrypted: refreshCT,
		TokenExpiresAt:        raw.ExpiresAt,
	}
	if err := s.grants.Upsert(ctx, grant); err != nil {
		return fmt.Errorf("oauth: store grant: %w", err)
	}

	if err := s.elicitations.Transition(ctx, e.ID, model.ElicitationCompleted); err != nil {
		return err
	}

	metrics.Elicitations.WithLabelValues("completed").Inc()
	s.log.Info("elicitation completed",
		zap.String("elicitation", e.ID),
		zap.String("provider", e.Provider))
	return nil
}

// CancelElicitation moves a pending elicitation to cancelled.
func (s *Service) CancelElicitation(ctx context.Context, elicitationID string) error {
	if err := s.elicitations.Transition(ctx, elicitationID, model.ElicitationCancelled); err != nil {
		return err
	}
	metrics.Elicitations.WithLabelValues("cancelled").Inc()
	return nil
}

// SweepExpired expires overdue pending elicitations. Safe to run from
// multiple instances concurrently.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.elicitations.SweepExpired(ctx, s.now())
	if n > 0 {
		metrics.Elicitations.WithLabelValues("expired").Add(float64(n))
	}
	return n, err
}

// StartSweeper expires overdue elicitations at a fixed interval until the
// context is cancelled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.SweepExpired(ctx)
				if err != nil {
					s.log.Warn("elicitation sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					s.log.Info("elicitation sweep", zap.Int("expired", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
