// Package model defines domain entities shared by services and repositories.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is a membership role inside a tenant, ordered by privilege.
type Role string

// Known roles, lowest to highest.
const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Rank returns the numeric privilege level of the role, 0 for unknown roles.
func (r Role) Rank() int { return roleRank[r] }

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool { return roleRank[r] != 0 }

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] != 0 && roleRank[min] != 0 && roleRank[r] >= roleRank[min]
}

// MembershipStatus is the lifecycle state of a membership row.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipPending   MembershipStatus = "pending"
	MembershipSuspended MembershipStatus = "suspended"
)

// TenantSettings holds per-tenant toggles stored as a JSON document.
type TenantSettings struct {
	AllowAnonymous    bool   `json:"allow_anonymous"`
	CustomDomain      string `json:"custom_domain,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty"`
	Burst             int    `json:"burst,omitempty"`
}

// Tenant is an isolated customer organization; the unit of data and key isolation.
// Immutable after onboarding except for Settings and Plan.
type Tenant struct {
	ID              uuid.UUID
	Name            string
	Slug            string // unique, URL-safe
	Region          string
	Plan            string
	EncryptionKeyID string
	Settings        TenantSettings
	CreatedAt       time.Time
}

// User is a global account, not scoped to any tenant.
type User struct {
	ID            uuid.UUID
	Email         string // unique, case-insensitive
	EmailVerified bool
	CreatedAt     time.Time
}

// NormalizeEmail canonicalizes an email for case-insensitive comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Membership links a user to a tenant with a role. One row per (tenant, user).
type Membership struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      Role
	Status    MembershipStatus
	InvitedBy uuid.NullUUID
	JoinedAt  time.Time
}

// Session is an authenticated (or anonymous) presence inside a tenant.
// Mutated only by touch (extends ExpiresAt) and destroy.
type Session struct {
	ID                string
	TenantID          uuid.UUID
	UserID            uuid.NullUUID
	ClientID          string
	ClientFingerprint string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	LastActivityAt    time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool { return s.ExpiresAt.Before(now) }

// PhotonGrant is a stored OAuth credential for a (tenant, photon, provider, user)
// tuple. Token fields hold vault ciphertext, never plaintext.
type PhotonGrant struct {
	ID                    uuid.UUID
	TenantID              uuid.UUID
	UserID                uuid.NullUUID
	PhotonID              string
	Provider              string
	Scopes                []string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string
	TokenExpiresAt        time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasScopes reports whether the grant covers every requested scope.
func (g *PhotonGrant) HasScopes(required []string) bool {
	have := make(map[string]struct{}, len(g.Scopes))
	for _, s := range g.Scopes {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// ElicitationStatus is the state of an elicitation request.
// pending is the only non-terminal state.
type ElicitationStatus string

const (
	ElicitationPending   ElicitationStatus = "pending"
	ElicitationCompleted ElicitationStatus = "completed"
	ElicitationExpired   ElicitationStatus = "expired"
	ElicitationCancelled ElicitationStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ElicitationStatus) Terminal() bool { return s != ElicitationPending }

// ElicitationRequest tracks a pending user authorization for a photon's
// third-party token request. Short-lived; swept once expired.
type ElicitationRequest struct {
	ID             string
	SessionID      string
	PhotonID       string
	Provider       string
	RequiredScopes []string
	Status         ElicitationStatus
	RedirectURI    string
	CodeVerifier   string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
