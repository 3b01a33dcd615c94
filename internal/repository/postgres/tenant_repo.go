package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// TenantRepo implements repository.TenantStore using PostgreSQL.
type TenantRepo struct{ db *DB }

var _ repository.TenantStore = (*TenantRepo)(nil)

// NewTenantRepo constructs a tenant repository.
func NewTenantRepo(db *DB) *TenantRepo { return &TenantRepo{db: db} }

const tenantColumns = `id, name, slug, region, plan, encryption_key_id, settings, created_at`

// Create inserts a new tenant row.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	const q = `
INSERT INTO tenants (id, name, slug, region, plan, encryption_key_id, settings)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, q, t.ID, t.Name, t.Slug, t.Region, t.Plan, t.EncryptionKeyID, settings)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a tenant by id.
func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE id=$1`
	return r.scanTenant(r.db.Pool.QueryRow(ctx, q, id))
}

// GetBySlug selects a tenant by its unique slug.
func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug=$1`
	return r.scanTenant(r.db.Pool.QueryRow(ctx, q, slug))
}

// GetByCustomDomain selects a tenant by the custom domain in its settings.
func (r *TenantRepo) GetByCustomDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE settings->>'custom_domain'=$1`
	return r.scanTenant(r.db.Pool.QueryRow(ctx, q, domain))
}

// UpdateSettings replaces the settings document.
func (r *TenantRepo) UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings) error {
	const q = `UPDATE tenants SET settings=$2 WHERE id=$1`
	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, q, id, doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *TenantRepo) scanTenant(row pgx.Row) (*model.Tenant, error) {
	var (
		t        model.Tenant
		settings []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Region, &t.Plan, &t.EncryptionKeyID, &settings, &t.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return &t, nil
}
