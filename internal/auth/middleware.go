package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
	"github.com/beamhq/beam-core/internal/session"
)

var bearerRe = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// RequestContext is the authenticated view of a request handed to the
// execution engine. Tenant is always set; the rest depends on the credential.
type RequestContext struct {
	Tenant     *model.Tenant
	Session    *model.Session
	User       *model.User
	Membership *model.Membership
}

// Denial codes, stable across transports.
const (
	CodeAuthenticationRequired = "authentication_required"
	CodeInvalidToken           = "invalid_token"
	CodeTenantMismatch         = "tenant_mismatch"
	CodeInsufficientRole       = "insufficient_role"
)

// Denial is a structured authentication/authorization failure. It is returned
// to the caller, never thrown past the middleware boundary.
type Denial struct {
	Status    int
	Code      string
	Message   string
	Challenge string // WWW-Authenticate value, empty on 403 role denials
}

// Result is the outcome of Authenticate: exactly one of Context or Denial is set.
type Result struct {
	Context *RequestContext
	Denial  *Denial
}

// Authenticated reports whether the request passed authentication.
func (r Result) Authenticated() bool { return r.Denial == nil }

// Middleware authenticates bearer credentials against a resolved tenant.
type Middleware struct {
	verifier    *TokenVerifier
	sessions    session.Store
	users       repository.UserStore
	memberships repository.MembershipStore
}

// NewMiddleware wires the middleware's collaborators.
func NewMiddleware(verifier *TokenVerifier, sessions session.Store, users repository.UserStore, memberships repository.MembershipStore) *Middleware {
	return &Middleware{verifier: verifier, sessions: sessions, users: users, memberships: memberships}
}

// Authenticate turns a tenant plus an Authorization header into an
// authenticated RequestContext or a structured denial.
//
// Every successful call touches the session: sliding expiration extends even
// on read-only requests.
func (m *Middleware) Authenticate(ctx context.Context, tenant *model.Tenant, authorization string, requiredRoles ...model.Role) (Result, error) {
	token, ok := extractBearer(authorization)
	if !ok {
		if tenant.Settings.AllowAnonymous {
			return Result{Context: &RequestContext{Tenant: tenant}}, nil
		}
		return deny(http.StatusUnauthorized, CodeAuthenticationRequired,
			"authentication required", Challenge(tenant.Slug, false)), nil
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		return deny(http.StatusUnauthorized, CodeInvalidToken,
			"invalid or expired token", Challenge(tenant.Slug, true)), nil
	}

	// A token minted for tenant A must never authenticate against tenant B,
	// even with a valid signature.
	if claims.TenantID != tenant.ID.String() {
		return deny(http.StatusForbidden, CodeTenantMismatch,
			"token was issued for a different tenant", Challenge(tenant.Slug, true)), nil
	}

	// A valid signature is not enough: the referenced session must still be
	// alive. A missing or expired session forces re-authentication rather
	// than a silent anonymous fallback.
	sess, err := m.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return deny(http.StatusUnauthorized, CodeInvalidToken,
				"session expired", Challenge(tenant.Slug, true)), nil
		}
		return Result{}, fmt.Errorf("auth: load session: %w", err)
	}

	sess, err = m.sessions.Touch(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return deny(http.StatusUnauthorized, CodeInvalidToken,
				"session expired", Challenge(tenant.Slug, true)), nil
		}
		return Result{}, fmt.Errorf("auth: touch session: %w", err)
	}

	rc := &RequestContext{Tenant: tenant, Session: sess}

	if claims.UserID != "" {
		userID, err := uuid.FromString(claims.UserID)
		if err != nil {
			return deny(http.StatusUnauthorized, CodeInvalidToken,
				"malformed user claim", Challenge(tenant.Slug, true)), nil
		}
		if err := m.attachUser(ctx, rc, tenant.ID, userID); err != nil {
			return Result{}, err
		}
	}

	if len(requiredRoles) > 0 {
		member := rc.Membership
		if member == nil || member.Status != model.MembershipActive || !HasPermission(member.Role, requiredRoles) {
			return deny(http.StatusForbidden, CodeInsufficientRole,
				"role does not permit this operation", ""), nil
		}
	}

	return Result{Context: rc}, nil
}

// attachUser loads the user and their membership in the tenant. Absence of
// either is legal (service tokens, users without membership rows).
func (m *Middleware) attachUser(ctx context.Context, rc *RequestContext, tenantID, userID uuid.UUID) error {
	user, err := m.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		rc.User = user
	case errors.Is(err, errs.ErrNotFound):
	default:
		return fmt.Errorf("auth: load user: %w", err)
	}

	member, err := m.memberships.Get(ctx, tenantID, userID)
	switch {
	case err == nil:
		rc.Membership = member
	case errors.Is(err, errs.ErrNotFound):
	default:
		return fmt.Errorf("auth: load membership: %w", err)
	}
	return nil
}

func extractBearer(authorization string) (string, bool) {
	m := bearerRe.FindStringSubmatch(authorization)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func deny(status int, code, message, challenge string) Result {
	return Result{Denial: &Denial{Status: status, Code: code, Message: message, Challenge: challenge}}
}
