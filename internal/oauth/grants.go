package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// grantKey is the lookup key of a grant: (tenant, photon, provider, user-or-null).
type grantKey struct {
	tenantID uuid.UUID
	photonID string
	provider string
	userID   uuid.UUID // Nil when the grant is tenant-wide
}

func keyOf(tenantID uuid.UUID, photonID, provider string, userID uuid.NullUUID) grantKey {
	k := grantKey{tenantID: tenantID, photonID: photonID, provider: provider}
	if userID.Valid {
		k.userID = userID.UUID
	}
	return k
}

// MemoryGrantStore is the reference in-process grant backend.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[grantKey]*model.PhotonGrant
}

var _ repository.GrantStore = (*MemoryGrantStore)(nil)

// NewMemoryGrantStore constructs an empty store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[grantKey]*model.PhotonGrant)}
}

// Find loads the grant for the lookup key.
func (s *MemoryGrantStore) Find(_ context.Context, tenantID uuid.UUID, photonID, provider string, userID uuid.NullUUID) (*model.PhotonGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[keyOf(tenantID, photonID, provider, userID)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *g
	return &cpy, nil
}

// Upsert inserts or refreshes the grant for its lookup key.
func (s *MemoryGrantStore) Upsert(_ context.Context, g *model.PhotonGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyOf(g.TenantID, g.PhotonID, g.Provider, g.UserID)
	now := time.Now()
	if existing, ok := s.grants[key]; ok {
		g.ID = existing.ID
		g.CreatedAt = existing.CreatedAt
	} else {
		if g.ID == uuid.Nil {
			id, err := uuid.NewV4()
			if err != nil {
				return err
			}
			g.ID = id
		}
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	cpy := *g
	s.grants[key] = &cpy
	return nil
}

// Delete removes a grant by id.
func (s *MemoryGrantStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, g := range s.grants {
		if g.ID == id {
			delete(s.grants, key)
			return nil
		}
	}
	return errs.ErrNotFound
}
