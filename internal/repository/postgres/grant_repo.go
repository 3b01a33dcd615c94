package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// GrantRepo implements repository.GrantStore using PostgreSQL.
type GrantRepo struct{ db *DB }

var _ repository.GrantStore = (*GrantRepo)(nil)

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{db: db} }

// Find selects the grant for (tenant, photon, provider, user-or-null).
func (r *GrantRepo) Find(ctx context.Context, tenantID uuid.UUID, photonID, provider string, userID uuid.NullUUID) (*model.PhotonGrant, error) {
	const q = `
SELECT id, tenant_id, user_id, photon_id, provider, scopes,
       access_token_encrypted, refresh_token_encrypted, token_expires_at,
       created_at, updated_at
FROM photon_grants
WHERE tenant_id=$1 AND photon_id=$2 AND provider=$3 AND user_id IS NOT DISTINCT FROM $4`
	row := r.db.Pool.QueryRow(ctx, q, tenantID, photonID, provider, userID)
	var (
		g      model.PhotonGrant
		scopes []byte
	)
	err := row.Scan(&g.ID, &g.TenantID, &g.UserID, &g.PhotonID, &g.Provider, &scopes,
		&g.AccessTokenEncrypted, &g.RefreshTokenEncrypted, &g.TokenExpiresAt,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &g.Scopes); err != nil {
			return nil, fmt.Errorf("unmarshal scopes: %w", err)
		}
	}
	return &g, nil
}

// Upsert refreshes the grant for its lookup key, inserting on first use.
func (r *GrantRepo) Upsert(ctx context.Context, g *model.PhotonGrant) error {
	scopes, err := json.Marshal(g.Scopes)
	if err != nil {
		return fmt.Errorf("marshal scopes: %w", err)
	}

	const update = `
UPDATE photon_grants
SET scopes=$5, access_token_encrypted=$6, refresh_token_encrypted=$7,
    token_expires_at=$8, updated_at=now()
WHERE tenant_id=$1 AND photon_id=$2 AND provider=$3 AND user_id IS NOT DISTINCT FROM $4`
	tag, err := r.db.Pool.Exec(ctx, update,
		g.TenantID, g.PhotonID, g.Provider, g.UserID,
		scopes, g.AccessTokenEncrypted, g.RefreshTokenEncrypted, g.TokenExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if g.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		g.ID = id
	}
	const insert = `
INSERT INTO photon_grants
  (id, tenant_id, user_id, photon_id, provider, scopes,
   access_token_encrypted, refresh_token_encrypted, token_expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.Pool.Exec(ctx, insert,
		g.ID, g.TenantID, g.UserID, g.PhotonID, g.Provider, scopes,
		g.AccessTokenEncrypted, g.RefreshTokenEncrypted, g.TokenExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Delete removes a grant by id.
func (r *GrantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM photon_grants WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
