package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/metrics"
	"github.com/beamhq/beam-core/internal/model"
)

// MemoryStore is the reference in-process backend: a primary map from session
// id to session plus a tenant:user index for efficient revoke-by-user. All
// mutations happen under one mutex, so touch/destroy races on the same id
// resolve as atomic read-modify-write units.
type MemoryStore struct {
	ttl    time.Duration
	maxTTL time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*model.Session
	byUser   map[string]map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption tweaks a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL overrides the default sliding TTL.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithMaxTTL overrides the absolute lifetime cap.
func WithMaxTTL(maxTTL time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.maxTTL = maxTTL }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:      DefaultTTL,
		maxTTL:   DefaultMaxTTL,
		now:      time.Now,
		sessions: make(map[string]*model.Session),
		byUser:   make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func userKey(tenantID, userID uuid.UUID) string {
	return tenantID.String() + ":" + userID.String()
}

// Create starts a new session and indexes it by user when one is attached.
func (s *MemoryStore) Create(_ context.Context, p CreateParams) (*model.Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("session: generate id: %w", err)
	}
	now := s.now()
	sess := &model.Session{
		ID:                id.String(),
		TenantID:          p.TenantID,
		UserID:            p.UserID,
		ClientID:          p.ClientID,
		ClientFingerprint: p.ClientFingerprint,
		CreatedAt:         now,
		ExpiresAt:         expiry(now, s.ttlOr(p.TTL), s.maxTTL),
		LastActivityAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	if p.UserID.Valid {
		k := userKey(p.TenantID, p.UserID.UUID)
		if s.byUser[k] == nil {
			s.byUser[k] = make(map[string]struct{})
		}
		s.byUser[k][sess.ID] = struct{}{}
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) ttlOr(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return s.ttl
}

// Get returns a live session. Expiry is enforced here, at read time: an
// expired session is removed from both maps before reporting not found.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if sess.Expired(s.now()) {
		s.removeLocked(sess)
		return nil, errs.ErrNotFound
	}
	return cloneSession(sess), nil
}

// Touch extends the sliding window, never past createdAt + maxTTL.
func (s *MemoryStore) Touch(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	now := s.now()
	if sess.Expired(now) {
		s.removeLocked(sess)
		return nil, errs.ErrNotFound
	}
	sess.ExpiresAt = slide(sess.CreatedAt, now, s.ttl, s.maxTTL)
	sess.LastActivityAt = now
	return cloneSession(sess), nil
}

// Destroy removes a session; absent ids are ignored.
func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		s.removeLocked(sess)
	}
	return nil
}

// DestroyByUser bulk-revokes every session of a user within a tenant.
func (s *MemoryStore) DestroyByUser(_ context.Context, tenantID, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userKey(tenantID, userID)
	count := 0
	for id := range s.byUser[k] {
		if sess, ok := s.sessions[id]; ok {
			s.removeLocked(sess)
			count++
		}
	}
	delete(s.byUser, k)
	return count, nil
}

// GetByUser lists live sessions for a user, lazily expiring stale ones.
func (s *MemoryStore) GetByUser(_ context.Context, tenantID, userID uuid.UUID) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []*model.Session
	for id := range s.byUser[userKey(tenantID, userID)] {
		sess, ok := s.sessions[id]
		if !ok {
			continue
		}
		if sess.Expired(now) {
			s.removeLocked(sess)
			continue
		}
		out = append(out, cloneSession(sess))
	}
	return out, nil
}

// Cleanup sweeps every expired session. Idempotent and safe to trigger
// concurrently; a second sweep simply finds nothing left to remove.
func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	count := 0
	for _, sess := range s.sessions {
		if sess.Expired(now) {
			s.removeLocked(sess)
			count++
		}
	}
	return count, nil
}

// removeLocked deletes a session from the primary map and the user index.
// Callers must hold s.mu.
func (s *MemoryStore) removeLocked(sess *model.Session) {
	delete(s.sessions, sess.ID)
	if sess.UserID.Valid {
		k := userKey(sess.TenantID, sess.UserID.UUID)
		if ids, ok := s.byUser[k]; ok {
			delete(ids, sess.ID)
			if len(ids) == 0 {
				delete(s.byUser, k)
			}
		}
	}
}

func cloneSession(sess *model.Session) *model.Session {
	cpy := *sess
	return &cpy
}

// StartSweeper runs Cleanup on the given store at a fixed interval until the
// context is cancelled.
func StartSweeper(ctx context.Context, store Store, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := store.Cleanup(ctx)
				if err != nil {
					log.Warn("session sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					metrics.SessionsSwept.Add(float64(n))
					log.Info("session sweep", zap.Int("removed", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
