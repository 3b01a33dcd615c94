// Package oauth resolves photon requests for third-party tokens, suspending
// execution with a typed elicitation signal when the user must authorize first.
package oauth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// DefaultElicitationTTL bounds how long a pending elicitation may wait for
// the user before it is swept.
const DefaultElicitationTTL = 10 * time.Minute

// ElicitationRequiredError interrupts photon execution when no usable grant
// exists. It is deliberately exception-like: raised from arbitrarily nested
// tool logic and caught by the outermost execution engine, which converts it
// into the wire-level payload (see ToJSONRPC). It is not a failure.
type ElicitationRequiredError struct {
	ElicitationID    string
	AuthorizationURL string
	Provider         string
	Scopes           []string
	Message          string
}

func (e *ElicitationRequiredError) Error() string {
	return fmt.Sprintf("authorization required for %s (scopes: %s)", e.Provider, strings.Join(e.Scopes, " "))
}

// MemoryElicitationStore is the reference in-process backend for elicitation
// tracking. All transitions happen under one mutex, so completion is
// exactly-once even under concurrent callbacks.
type MemoryElicitationStore struct {
	mu       sync.Mutex
	requests map[string]*model.ElicitationRequest
}

var _ repository.ElicitationStore = (*MemoryElicitationStore)(nil)

// NewMemoryElicitationStore constructs an empty store.
func NewMemoryElicitationStore() *MemoryElicitationStore {
	return &MemoryElicitationStore{requests: make(map[string]*model.ElicitationRequest)}
}

// Create inserts a new pending request.
func (s *MemoryElicitationStore) Create(_ context.Context, e *model.ElicitationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[e.ID]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *e
	s.requests[e.ID] = &cpy
	return nil
}

// Get loads a request by id.
func (s *MemoryElicitationStore) Get(_ context.Context, id string) (*model.ElicitationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.requests[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *e
	return &cpy, nil
}

// Transition moves a pending request to a terminal status. A request that has
// already reached a terminal state is never overwritten.
func (s *MemoryElicitationStore) Transition(_ context.Context, id string, to model.ElicitationStatus) error {
	if !to.Terminal() {
		return fmt.Errorf("oauth: invalid transition target %q", to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.requests[id]
	if !ok {
		return errs.ErrNotFound
	}
	if e.Status.Terminal() {
		return errs.ErrElicitationTerminal
	}
	e.Status = to
	return nil
}

// SweepExpired expires overdue pending requests and drops requests that have
// been terminal long enough to be garbage. Idempotent and safe to re-run.
func (s *MemoryElicitationStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, e := range s.requests {
		switch {
		case e.Status == model.ElicitationPending && e.ExpiresAt.Before(now):
			e.Status = model.ElicitationExpired
			count++
		case e.Status.Terminal() && e.ExpiresAt.Add(DefaultElicitationTTL).Before(now):
			delete(s.requests, id)
		}
	}
	return count, nil
}
