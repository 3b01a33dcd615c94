// Package tenant maps inbound requests to tenants.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
	"github.com/beamhq/beam-core/internal/repository"
)

// DefaultPathPrefix is the URL prefix for path-based tenant addressing.
const DefaultPathPrefix = "/tenant/"

var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// Resolver resolves the tenant addressed by a request. It is a pure lookup
// composition with no side effects; storage is behind repository.TenantStore.
type Resolver struct {
	store      repository.TenantStore
	baseDomain string
	pathPrefix string
}

// NewResolver builds a resolver for the given base domain. An empty
// pathPrefix falls back to DefaultPathPrefix.
func NewResolver(store repository.TenantStore, baseDomain, pathPrefix string) *Resolver {
	if pathPrefix == "" {
		pathPrefix = DefaultPathPrefix
	}
	return &Resolver{
		store:      store,
		baseDomain: strings.ToLower(strings.TrimSuffix(baseDomain, ".")),
		pathPrefix: pathPrefix,
	}
}

// Resolve applies the resolution rules in order, first match wins:
// subdomain of the base domain, then path prefix, then custom domain.
// No rule matching yields errs.ErrTenantNotFound; callers must treat that as
// "tenant not found", never as an anonymous tenant.
func (r *Resolver) Resolve(ctx context.Context, host, path string) (*model.Tenant, error) {
	host = stripPort(strings.ToLower(host))

	if slug, ok := r.subdomainSlug(host); ok {
		t, err := r.store.GetBySlug(ctx, slug)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("tenant: resolve subdomain %q: %w", slug, err)
		}
	}

	if slug, ok := r.pathSlug(path); ok {
		t, err := r.store.GetBySlug(ctx, slug)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("tenant: resolve path %q: %w", slug, err)
		}
	}

	if host != "" {
		t, err := r.store.GetByCustomDomain(ctx, host)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("tenant: resolve domain %q: %w", host, err)
		}
	}

	return nil, errs.ErrTenantNotFound
}

// subdomainSlug extracts a tenant slug from a host of the form
// <slug>.<baseDomain>. Only a single label is accepted: deeper nesting like
// a.b.<baseDomain> is not a subdomain match.
func (r *Resolver) subdomainSlug(host string) (string, bool) {
	if r.baseDomain == "" || !strings.HasSuffix(host, "."+r.baseDomain) {
		return "", false
	}
	label := strings.TrimSuffix(host, "."+r.baseDomain)
	if label == "" || strings.Contains(label, ".") || !slugRe.MatchString(label) {
		return "", false
	}
	return label, true
}

// pathSlug extracts the path segment following the configured prefix.
func (r *Resolver) pathSlug(path string) (string, bool) {
	idx := strings.Index(path, r.pathPrefix)
	if idx < 0 {
		return "", false
	}
	rest := path[idx+len(r.pathPrefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if !slugRe.MatchString(rest) {
		return "", false
	}
	return rest, true
}

// stripPort removes a trailing :port from a host, if present.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
