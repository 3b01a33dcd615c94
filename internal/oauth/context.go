package oauth

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/beamhq/beam-core/internal/auth"
	"github.com/beamhq/beam-core/internal/model"
)

// Context is the per-invocation handle the execution engine gives photon
// code. It scopes every token request to the authenticated tenant, session
// and user of the inbound call plus the photon being executed.
type Context struct {
	svc      *Service
	tenant   *model.Tenant
	session  *model.Session
	userID   uuid.NullUUID
	photonID string
}

// NewContext builds a photon's OAuth handle from an authenticated request
// context.
func (s *Service) NewContext(rc *auth.RequestContext, photonID string) *Context {
	c := &Context{
		svc:      s,
		tenant:   rc.Tenant,
		session:  rc.Session,
		photonID: photonID,
	}
	if rc.User != nil {
		c.userID = uuid.NullUUID{UUID: rc.User.ID, Valid: true}
	}
	return c
}

// RequestToken returns a decrypted third-party token for the provider when a
// usable grant exists. Otherwise it records a pending elicitation and returns
// an *ElicitationRequiredError, which the engine must surface to the caller
// as a structured response rather than a generic failure.
func (c *Context) RequestToken(ctx context.Context, provider string, scopes []string) (*Token, error) {
	return c.svc.requestToken(ctx, c, provider, scopes)
}
