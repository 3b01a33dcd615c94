package auth

import (
	"context"

	"github.com/beamhq/beam-core/internal/tenant"
)

// ContextBuilder is the composition glue in front of the middleware: it
// resolves the tenant and returns a partial RequestContext carrying only the
// tenant. Session, user and membership are layered on by Authenticate.
type ContextBuilder struct {
	resolver *tenant.Resolver
}

// NewContextBuilder wraps a tenant resolver.
func NewContextBuilder(resolver *tenant.Resolver) *ContextBuilder {
	return &ContextBuilder{resolver: resolver}
}

// Build resolves the tenant addressed by host/path. A resolution miss
// surfaces as errs.ErrTenantNotFound, never as an anonymous context.
func (b *ContextBuilder) Build(ctx context.Context, host, path string) (*RequestContext, error) {
	t, err := b.resolver.Resolve(ctx, host, path)
	if err != nil {
		return nil, err
	}
	return &RequestContext{Tenant: t}, nil
}
