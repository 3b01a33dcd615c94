package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/session"
)

// SessionRepo implements session.Store using PostgreSQL, for multi-instance
// deployments where sessions must survive process restarts. Expiry is still
// enforced at read time: relying on a background sweep alone would let a
// stale session authenticate between sweeps.
type SessionRepo struct {
	db     *DB
	ttl    time.Duration
	maxTTL time.Duration
	now    func() time.Time
}

var _ session.Store = (*SessionRepo)(nil)

// NewSessionRepo constructs a session repository with the standard lifetime
// defaults.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{
		db:     db,
		ttl:    session.DefaultTTL,
		maxTTL: session.DefaultMaxTTL,
		now:    time.Now,
	}
}

const sessionColumns = `id, tenant_id, user_id, client_id, client_fingerprint, created_at, expires_at, last_activity_at`

// Create inserts a new session row.
func (r *SessionRepo) Create(ctx context.Context, p session.CreateParams) (*model.Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := r.now()
	ttl := p.TTL
	if ttl <= 0 || ttl > r.maxTTL {
		ttl = r.ttl
	}
	sess := &model.Session{
		ID:                id.String(),
		TenantID:          p.TenantID,
		UserID:            p.UserID,
		ClientID:          p.ClientID,
		ClientFingerprint: p.ClientFingerprint,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
		LastActivityAt:    now,
	}
	const q = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.Pool.Exec(ctx, q,
		sess.ID, sess.TenantID, sess.UserID, sess.ClientID, sess.ClientFingerprint,
		sess.CreatedAt, sess.ExpiresAt, sess.LastActivityAt)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Get selects a live session, destroying it when past expiry.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	sess, err := r.scanSession(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(r.now()) {
		if derr := r.Destroy(ctx, id); derr != nil {
			return nil, derr
		}
		return nil, errs.ErrNotFound
	}
	return sess, nil
}

// Touch atomically slides the deadline forward, capped at created_at + maxTTL.
func (r *SessionRepo) Touch(ctx context.Context, id string) (*model.Session, error) {
	const q = `
UPDATE sessions
SET expires_at = LEAST($2, created_at + $3), last_activity_at = $4
WHERE id=$1 AND expires_at > $4
RETURNING ` + sessionColumns
	now := r.now()
	row := r.db.Pool.QueryRow(ctx, q, id, now.Add(r.ttl), r.maxTTL, now)
	var sess model.Session
	if err := row.Scan(&sess.ID, &sess.TenantID, &sess.UserID, &sess.ClientID, &sess.ClientFingerprint,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivityAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &sess, nil
}

// Destroy removes a session row; absent ids are ignored.
func (r *SessionRepo) Destroy(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// DestroyByUser removes every session of a user within a tenant.
func (r *SessionRepo) DestroyByUser(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	const q = `DELETE FROM sessions WHERE tenant_id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// GetByUser lists the live sessions of a user within a tenant.
func (r *SessionRepo) GetByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]*model.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM sessions WHERE tenant_id=$1 AND user_id=$2 AND expires_at > $3`
	rows, err := r.db.Pool.Query(ctx, q, tenantID, userID, r.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.TenantID, &sess.UserID, &sess.ClientID, &sess.ClientFingerprint,
			&sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivityAt); err != nil {
			return nil, err
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// Cleanup deletes expired rows; a backend sweep complements read-time expiry.
func (r *SessionRepo) Cleanup(ctx context.Context) (int, error) {
	const q = `DELETE FROM sessions WHERE expires_at < $1`
	tag, err := r.db.Pool.Exec(ctx, q, r.now())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *SessionRepo) scanSession(ctx context.Context, q string, args ...any) (*model.Session, error) {
	row := r.db.Pool.QueryRow(ctx, q, args...)
	var sess model.Session
	if err := row.Scan(&sess.ID, &sess.TenantID, &sess.UserID, &sess.ClientID, &sess.ClientFingerprint,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivityAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &sess, nil
}
