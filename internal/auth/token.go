// Package auth turns inbound credentials into authenticated request contexts.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
)

// Claims is the signed claim set of a session token. The token is a bearer
// credential, never stored: it is reconstructed from these claims on every
// request and is only as alive as the session it references.
type Claims struct {
	TenantID   string `json:"tid"`
	TenantSlug string `json:"tsl,omitempty"`
	SessionID  string `json:"sid"`
	UserID     string `json:"uid,omitempty"`
	Role       string `json:"rol,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs session tokens. Issuance happens at login, which is owned
// by an external collaborator; the issuer lives here so that the claim layout
// has a single owner.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenIssuer constructs an HS256 issuer.
func NewTokenIssuer(key []byte, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue signs a token binding the session to its tenant and, when present,
// the user's id and role.
func (i *TokenIssuer) Issue(tenant *model.Tenant, sess *model.Session, role model.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID:   tenant.ID.String(),
		TenantSlug: tenant.Slug,
		SessionID:  sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			Subject:   sess.ClientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if sess.UserID.Valid {
		claims.UserID = sess.UserID.UUID.String()
		claims.Subject = sess.UserID.UUID.String()
	}
	if role != "" {
		claims.Role = string(role)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// TokenVerifier validates session token signatures and registered claims.
type TokenVerifier struct {
	key      []byte
	issuer   string
	audience string
}

// NewTokenVerifier constructs a verifier for tokens produced by the matching issuer.
func NewTokenVerifier(key []byte, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{key: key, issuer: issuer, audience: audience}
}

// Verify parses the token and returns its claims. Signature, expiry, issuer
// and audience are all checked; any failure maps to errs.ErrUnauthorized.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if claims.TenantID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: token missing tenant or session claim", errs.ErrUnauthorized)
	}
	return &claims, nil
}
