package auth

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
	"github.com/beamhq/beam-core/internal/tenant"
)

type staticTenants struct{ t *model.Tenant }

var _ repository.TenantStore = (*staticTenants)(nil)

func (s *staticTenants) Create(context.Context, *model.Tenant) error { return nil }

func (s *staticTenants) GetByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if s.t != nil && s.t.ID == id {
		return s.t, nil
	}
	return nil, errs.ErrNotFound
}

func (s *staticTenants) GetBySlug(_ context.Context, slug string) (*model.Tenant, error) {
	if s.t != nil && s.t.Slug == slug {
		return s.t, nil
	}
	return nil, errs.ErrNotFound
}

func (s *staticTenants) GetByCustomDomain(context.Context, string) (*model.Tenant, error) {
	return nil, errs.ErrNotFound
}

func (s *staticTenants) UpdateSettings(context.Context, uuid.UUID, model.TenantSettings) error {
	return nil
}

func TestContextBuilder(t *testing.T) {
	t.Parallel()
	acme := &model.Tenant{ID: uuid.Must(uuid.NewV4()), Slug: "acme"}
	b := NewContextBuilder(tenant.NewResolver(&staticTenants{t: acme}, "example.com", ""))

	rc, err := b.Build(context.Background(), "acme.example.com", "/rpc")
	require.NoError(t, err)
	require.Equal(t, acme, rc.Tenant)
	require.Nil(t, rc.Session)
	require.Nil(t, rc.User)

	_, err = b.Build(context.Background(), "ghost.example.com", "/rpc")
	require.ErrorIs(t, err, errs.ErrTenantNotFound)
}
