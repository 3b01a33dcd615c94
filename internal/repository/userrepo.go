package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/model"
)

// UserStore provides access to global user accounts.
type UserStore interface {
	// Create inserts a new user. Email uniqueness is case-insensitive.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// MembershipStore provides access to (tenant, user) membership rows.
type MembershipStore interface {
	// Create inserts a membership. One row per (tenant, user).
	Create(ctx context.Context, m *model.Membership) error
	// Get loads the membership for a tenant/user pair.
	Get(ctx context.Context, tenantID, userID uuid.UUID) (*model.Membership, error)
	// SetRole updates the role of an existing membership.
	SetRole(ctx context.Context, tenantID, userID uuid.UUID, role model.Role) error
}
