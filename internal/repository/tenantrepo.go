// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/model"
)

// TenantStore provides lookup and onboarding access for tenants.
type TenantStore interface {
	// Create inserts a new tenant.
	Create(ctx context.Context, t *model.Tenant) error
	// GetByID loads a tenant by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	// GetBySlug loads a tenant by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	// GetByCustomDomain loads a tenant by its configured custom domain.
	GetByCustomDomain(ctx context.Context, domain string) (*model.Tenant, error)
	// UpdateSettings replaces the tenant's settings document.
	UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings) error
}
