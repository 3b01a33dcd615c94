// Package session manages session lifecycle with sliding expiration.
package session

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/model"
)

// Lifetime defaults. A session slides forward on activity but never lives
// longer than MaxTTL past its creation, bounding the blast radius of a stolen
// session id.
const (
	DefaultTTL    = 15 * time.Minute
	DefaultMaxTTL = 24 * time.Hour
)

// CreateParams carries the inputs for a new session.
type CreateParams struct {
	TenantID          uuid.UUID
	UserID            uuid.NullUUID
	ClientID          string
	ClientFingerprint string
	// TTL overrides the store default when positive.
	TTL time.Duration
}

// Store is the session backend contract. Every backend must enforce expiry at
// read time and cap lifetime at creation + MaxTTL, whatever its native TTL
// support looks like.
type Store interface {
	// Create starts a new session.
	Create(ctx context.Context, p CreateParams) (*model.Session, error)
	// Get loads a live session. An expired session is destroyed on read and
	// reported as errs.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Touch extends expiry to min(now+TTL, createdAt+MaxTTL) and records activity.
	Touch(ctx context.Context, id string) (*model.Session, error)
	// Destroy removes a session. Destroying an absent session is not an error.
	Destroy(ctx context.Context, id string) error
	// DestroyByUser removes every session of a user within a tenant and
	// returns how many were removed.
	DestroyByUser(ctx context.Context, tenantID, userID uuid.UUID) (int, error)
	// GetByUser lists the live sessions of a user within a tenant.
	GetByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*model.Session, error)
	// Cleanup sweeps expired sessions and returns the count. A no-op for
	// backends with native TTL.
	Cleanup(ctx context.Context) (int, error)
}

// expiry computes the initial deadline for a session created at the given time.
func expiry(createdAt time.Time, ttl, maxTTL time.Duration) time.Time {
	if ttl <= 0 || ttl > maxTTL {
		ttl = maxTTL
	}
	return createdAt.Add(ttl)
}

// slide computes the touched deadline, capped at createdAt + maxTTL.
func slide(createdAt, now time.Time, ttl, maxTTL time.Duration) time.Time {
	next := now.Add(ttl)
	if cap := createdAt.Add(maxTTL); next.After(cap) {
		return cap
	}
	return next
}
