package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/model"
)

// GrantStore persists encrypted OAuth grants. The lookup key is
// (tenant, photon, provider, user-or-null).
type GrantStore interface {
	// Find loads the grant for the lookup key, errs.ErrNotFound when absent.
	Find(ctx context.Context, tenantID uuid.UUID, photonID, provider string, userID uuid.NullUUID) (*model.PhotonGrant, error)
	// Upsert inserts the grant or refreshes an existing one for the same key.
	Upsert(ctx context.Context, g *model.PhotonGrant) error
	// Delete removes a grant by id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ElicitationStore tracks pending user-authorization requests.
type ElicitationStore interface {
	// Create inserts a new pending request.
	Create(ctx context.Context, e *model.ElicitationRequest) error
	// Get loads a request by id, errs.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*model.ElicitationRequest, error)
	// Transition atomically moves a pending request to a terminal status.
	// A request that is already terminal yields errs.ErrElicitationTerminal.
	Transition(ctx context.Context, id string, to model.ElicitationStatus) error
	// SweepExpired marks overdue pending requests expired and returns the count.
	// Safe to run concurrently from multiple instances.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
