package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// ElicitationRepo implements repository.ElicitationStore using PostgreSQL.
type ElicitationRepo struct{ db *DB }

var _ repository.ElicitationStore = (*ElicitationRepo)(nil)

// NewElicitationRepo constructs an elicitation repository.
func NewElicitationRepo(db *DB) *ElicitationRepo { return &ElicitationRepo{db: db} }

// Create inserts a new pending request.
func (r *ElicitationRepo) Create(ctx context.Context, e *model.ElicitationRequest) error {
	const q = `
INSERT INTO elicitation_requests
  (id, session_id, photon_id, provider, required_scopes, status,
   redirect_uri, code_verifier, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	scopes, err := json.Marshal(e.RequiredScopes)
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, q,
		e.ID, e.SessionID, e.PhotonID, e.Provider, scopes, string(e.Status),
		e.RedirectURI, e.CodeVerifier, e.CreatedAt, e.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get selects a request by id.
func (r *ElicitationRepo) Get(ctx context.Context, id string) (*model.ElicitationRequest, error) {
	const q = `
SELECT id, session_id, photon_id, provider, required_scopes, status,
       redirect_uri, code_verifier, created_at, expires_at
FROM elicitation_requests WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var (
		e      model.ElicitationRequest
		scopes []byte
		status string
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.PhotonID, &e.Provider, &scopes, &status,
		&e.RedirectURI, &e.CodeVerifier, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	e.Status = model.ElicitationStatus(status)
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &e.RequiredScopes); err != nil {
			return nil, fmt.Errorf("unmarshal scopes: %w", err)
		}
	}
	return &e, nil
}

// Transition moves a pending request to a terminal status. The guard in the
// WHERE clause makes the transition atomic: a row that already left pending
// is never overwritten.
func (r *ElicitationRepo) Transition(ctx context.Context, id string, to model.ElicitationStatus) error {
	if !to.Terminal() {
		return fmt.Errorf("invalid transition target %q", to)
	}
	const q = `
UPDATE elicitation_requests SET status=$2
WHERE id=$1 AND status='pending'`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a terminal one.
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return gerr
		}
		return errs.ErrElicitationTerminal
	}
	return nil
}

// SweepExpired expires overdue pending requests and garbage-collects rows
// that have been terminal for a while. Concurrent sweeps from multiple
// instances are safe: the status guard makes each row's transition happen once.
func (r *ElicitationRepo) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	const expire = `
UPDATE elicitation_requests SET status='expired'
WHERE status='pending' AND expires_at < $1`
	tag, err := r.db.Pool.Exec(ctx, expire, now)
	if err != nil {
		return 0, err
	}

	const purge = `
DELETE FROM elicitation_requests
WHERE status <> 'pending' AND expires_at < $1`
	if _, err := r.db.Pool.Exec(ctx, purge, now.Add(-24*time.Hour)); err != nil {
		return int(tag.RowsAffected()), err
	}
	return int(tag.RowsAffected()), nil
}
