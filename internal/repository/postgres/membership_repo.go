package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// MembershipRepo implements repository.MembershipStore using PostgreSQL.
type MembershipRepo struct{ db *DB }

var _ repository.MembershipStore = (*MembershipRepo)(nil)

// NewMembershipRepo constructs a membership repository.
func NewMembershipRepo(db *DB) *MembershipRepo { return &MembershipRepo{db: db} }

// Create inserts a membership row; (tenant_id, user_id) is the primary key.
func (r *MembershipRepo) Create(ctx context.Context, m *model.Membership) error {
	const q = `
INSERT INTO memberships (tenant_id, user_id, role, status, invited_by)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, m.TenantID, m.UserID, string(m.Role), string(m.Status), m.InvitedBy)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get selects the membership for a tenant/user pair.
func (r *MembershipRepo) Get(ctx context.Context, tenantID, userID uuid.UUID) (*model.Membership, error) {
	const q = `
SELECT tenant_id, user_id, role, status, invited_by, joined_at
FROM memberships WHERE tenant_id=$1 AND user_id=$2`
	row := r.db.Pool.QueryRow(ctx, q, tenantID, userID)
	var (
		m      model.Membership
		role   string
		status string
	)
	if err := row.Scan(&m.TenantID, &m.UserID, &role, &status, &m.InvitedBy, &m.JoinedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	m.Role = model.Role(role)
	m.Status = model.MembershipStatus(status)
	return &m, nil
}

// SetRole updates the role of an existing membership.
func (r *MembershipRepo) SetRole(ctx context.Context, tenantID, userID uuid.UUID, role model.Role) error {
	const q = `UPDATE memberships SET role=$3 WHERE tenant_id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, userID, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
