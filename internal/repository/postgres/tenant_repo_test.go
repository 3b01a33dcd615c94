package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
)

func TestTenantRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	ctx := context.Background()

	tenant := &model.Tenant{
		ID:              uuid.Must(uuid.NewV4()),
		Name:            "Acme",
		Slug:            "acme",
		Region:          "eu-west-1",
		Plan:            "pro",
		EncryptionKeyID: "key-1",
		Settings:        model.TenantSettings{AllowAnonymous: true},
	}
	settings, err := json.Marshal(tenant.Settings)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Slug, tenant.Region, tenant.Plan, tenant.EncryptionKeyID, settings).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, tenant))

	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Slug, tenant.Region, tenant.Plan, tenant.EncryptionKeyID, settings).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, tenant), errs.ErrAlreadyExists)
}

func TestTenantRepo_GetBySlug(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	cols := []string{"id", "name", "slug", "region", "plan", "encryption_key_id", "settings", "created_at"}
	mock.ExpectQuery(`SELECT id, name, slug, region, plan, encryption_key_id, settings, created_at FROM tenants WHERE slug=\$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id, "Acme", "acme", "eu-west-1", "pro", "key-1", []byte(`{"allow_anonymous":true}`), time.Now()))
	tenant, err := r.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, id, tenant.ID)
	require.True(t, tenant.Settings.AllowAnonymous)

	mock.ExpectQuery(`SELECT id, name, slug, region, plan, encryption_key_id, settings, created_at FROM tenants WHERE slug=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetBySlug(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTenantRepo_GetByCustomDomain(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	id := uuid.Must(uuid.NewV4())

	cols := []string{"id", "name", "slug", "region", "plan", "encryption_key_id", "settings", "created_at"}
	mock.ExpectQuery(`SELECT id, name, slug, region, plan, encryption_key_id, settings, created_at FROM tenants WHERE settings->>'custom_domain'=\$1`).
		WithArgs("tools.acme.io").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id, "Acme", "acme", "eu-west-1", "pro", "key-1", []byte(`{"custom_domain":"tools.acme.io"}`), time.Now()))
	tenant, err := r.GetByCustomDomain(context.Background(), "tools.acme.io")
	require.NoError(t, err)
	require.Equal(t, "tools.acme.io", tenant.Settings.CustomDomain)
}

func TestTenantRepo_UpdateSettings(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	id := uuid.Must(uuid.NewV4())
	settings := model.TenantSettings{RequestsPerMinute: 120}
	doc, err := json.Marshal(settings)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE tenants SET settings=\$2 WHERE id=\$1`).
		WithArgs(id, doc).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateSettings(context.Background(), id, settings))

	mock.ExpectExec(`UPDATE tenants SET settings=\$2 WHERE id=\$1`).
		WithArgs(id, doc).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateSettings(context.Background(), id, settings), errs.ErrNotFound)
}
