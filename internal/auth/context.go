package auth

import "context"

type ctxKey string

const requestContextKey ctxKey = "beam.requestContext"

// WithRequestContext stores the authenticated request context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFrom fetches the authenticated request context, if any.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(*RequestContext)
	return rc, ok
}
