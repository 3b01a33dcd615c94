package tenant

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// fakeTenants is an in-memory TenantStore for resolver tests.
type fakeTenants struct {
	bySlug   map[string]*model.Tenant
	byDomain map[string]*model.Tenant
}

var _ repository.TenantStore = (*fakeTenants)(nil)

func newFakeTenants(tenants ...*model.Tenant) *fakeTenants {
	f := &fakeTenants{
		bySlug:   map[string]*model.Tenant{},
		byDomain: map[string]*model.Tenant{},
	}
	for _, t := range tenants {
		f.bySlug[t.Slug] = t
		if t.Settings.CustomDomain != "" {
			f.byDomain[t.Settings.CustomDomain] = t
		}
	}
	return f
}

func (f *fakeTenants) Create(_ context.Context, t *model.Tenant) error {
	if _, ok := f.bySlug[t.Slug]; ok {
		return errs.ErrAlreadyExists
	}
	f.bySlug[t.Slug] = t
	return nil
}

func (f *fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	for _, t := range f.bySlug {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTenants) GetBySlug(_ context.Context, slug string) (*model.Tenant, error) {
	if t, ok := f.bySlug[slug]; ok {
		return t, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTenants) GetByCustomDomain(_ context.Context, domain string) (*model.Tenant, error) {
	if t, ok := f.byDomain[domain]; ok {
		return t, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTenants) UpdateSettings(_ context.Context, id uuid.UUID, settings model.TenantSettings) error {
	t, err := f.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	t.Settings = settings
	return nil
}

func testTenant(slug string) *model.Tenant {
	return &model.Tenant{ID: uuid.Must(uuid.NewV4()), Name: slug, Slug: slug}
}

func TestResolver_Subdomain(t *testing.T) {
	t.Parallel()
	acme := testTenant("acme")
	r := NewResolver(newFakeTenants(acme), "example.com", "")
	ctx := context.Background()

	got, err := r.Resolve(ctx, "acme.example.com", "/")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)

	// Port is stripped before matching.
	got, err = r.Resolve(ctx, "acme.example.com:8443", "/")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)
}

func TestResolver_MultiLevelSubdomainRejected(t *testing.T) {
	t.Parallel()
	r := NewResolver(newFakeTenants(testTenant("b")), "example.com", "")

	_, err := r.Resolve(context.Background(), "a.b.example.com", "/")
	require.ErrorIs(t, err, errs.ErrTenantNotFound)
}

func TestResolver_BaseDomainItselfDoesNotMatch(t *testing.T) {
	t.Parallel()
	r := NewResolver(newFakeTenants(testTenant("acme")), "example.com", "")

	_, err := r.Resolve(context.Background(), "example.com", "/")
	require.ErrorIs(t, err, errs.ErrTenantNotFound)
}

func TestResolver_PathPrefix(t *testing.T) {
	t.Parallel()
	acme := testTenant("acme")
	r := NewResolver(newFakeTenants(acme), "example.com", "")
	ctx := context.Background()

	got, err := r.Resolve(ctx, "api.example.com", "/tenant/acme/photons/run")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)

	got, err = r.Resolve(ctx, "other.host", "/tenant/acme")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)
}

func TestResolver_CustomDomain(t *testing.T) {
	t.Parallel()
	acme := testTenant("acme")
	acme.Settings.CustomDomain = "tools.acme.io"
	r := NewResolver(newFakeTenants(acme), "example.com", "")

	got, err := r.Resolve(context.Background(), "tools.acme.io", "/anything")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)
}

func TestResolver_OrderSubdomainBeatsPath(t *testing.T) {
	t.Parallel()
	sub := testTenant("sub")
	path := testTenant("path")
	r := NewResolver(newFakeTenants(sub, path), "example.com", "")

	got, err := r.Resolve(context.Background(), "sub.example.com", "/tenant/path/x")
	require.NoError(t, err)
	require.Equal(t, sub.ID, got.ID)
}

func TestResolver_UnknownSlugFallsThrough(t *testing.T) {
	t.Parallel()
	acme := testTenant("acme")
	acme.Settings.CustomDomain = "ghost.example.com"
	r := NewResolver(newFakeTenants(acme), "example.com", "")

	// "ghost" is not a slug, but the full host is a registered custom domain.
	got, err := r.Resolve(context.Background(), "ghost.example.com", "/")
	require.NoError(t, err)
	require.Equal(t, acme.ID, got.ID)
}

func TestResolver_NothingMatches(t *testing.T) {
	t.Parallel()
	r := NewResolver(newFakeTenants(), "example.com", "")

	_, err := r.Resolve(context.Background(), "nobody.elsewhere.net", "/")
	require.ErrorIs(t, err, errs.ErrTenantNotFound)
}
