// Package limiter enforces per-tenant request budgets.
package limiter

import (
	"sync"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/time/rate"

	"github.com/beamhq/beam-core/internal/model"
)

// Limiter answers whether a tenant may make another request right now.
type Limiter interface {
	// Allow consumes one request from the tenant's budget and reports
	// whether it fit.
	Allow(t *model.Tenant) bool
}

// TenantLimiter is a token-bucket limiter per tenant. Limits come from the
// tenant's settings, falling back to process-wide defaults; a settings change
// replaces the tenant's bucket on the next call.
type TenantLimiter struct {
	defaultRPM   int
	defaultBurst int

	mu      sync.Mutex
	buckets map[uuid.UUID]*bucket
}

type bucket struct {
	lim   *rate.Limiter
	rpm   int
	burst int
}

var _ Limiter = (*TenantLimiter)(nil)

// New constructs a limiter with process-wide defaults. A non-positive
// defaultRPM disables limiting for tenants without their own setting.
func New(defaultRPM, defaultBurst int) *TenantLimiter {
	return &TenantLimiter{
		defaultRPM:   defaultRPM,
		defaultBurst: defaultBurst,
		buckets:      make(map[uuid.UUID]*bucket),
	}
}

// Allow consumes one request from the tenant's bucket.
func (l *TenantLimiter) Allow(t *model.Tenant) bool {
	rpm, burst := l.defaultRPM, l.defaultBurst
	if t.Settings.RequestsPerMinute > 0 {
		rpm = t.Settings.RequestsPerMinute
	}
	if t.Settings.Burst > 0 {
		burst = t.Settings.Burst
	}
	if rpm <= 0 {
		return true
	}
	if burst <= 0 {
		burst = rpm
	}

	l.mu.Lock()
	b, ok := l.buckets[t.ID]
	if !ok || b.rpm != rpm || b.burst != burst {
		b = &bucket{
			lim:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
			rpm:   rpm,
			burst: burst,
		}
		l.buckets[t.ID] = b
	}
	l.mu.Unlock()

	return b.lim.Allow()
}
