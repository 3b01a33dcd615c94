package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/beamhq/beam-core/internal/auth"
	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/metrics"
	"github.com/beamhq/beam-core/internal/model"
)

// statusWriter records the status code written by the handler chain.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPDuration.WithLabelValues(route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

// withTenant resolves the tenant addressed by the request and stores a partial
// request context. A miss is a hard 404, never an anonymous fallback.
func (s *Server) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := s.builder.Build(r.Context(), r.Host, r.URL.Path)
		if err != nil {
			if errors.Is(err, errs.ErrTenantNotFound) {
				writeError(w, http.StatusNotFound, "tenant_not_found", "unknown tenant")
				return
			}
			s.log.Error("tenant resolution failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithRequestContext(r.Context(), rc)))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			if rc, ok := auth.RequestContextFrom(r.Context()); ok && !s.limiter.Allow(rc.Tenant) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "tenant request budget exhausted")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth authenticates the bearer credential against the resolved tenant
// and replaces the partial request context with the authenticated one. The
// denial's challenge, when present, is surfaced as WWW-Authenticate.
func (s *Server) requireAuth(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc, ok := auth.RequestContextFrom(r.Context())
			if !ok {
				writeError(w, http.StatusInternalServerError, "internal", "tenant not resolved")
				return
			}
			res, err := s.authn.Authenticate(r.Context(), rc.Tenant, r.Header.Get("Authorization"), roles...)
			if err != nil {
				s.log.Error("authentication failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
				return
			}
			if !res.Authenticated() {
				d := res.Denial
				metrics.AuthResults.WithLabelValues(d.Code).Inc()
				if d.Challenge != "" {
					w.Header().Set("WWW-Authenticate", d.Challenge)
				}
				writeError(w, d.Status, d.Code, d.Message)
				return
			}
			metrics.AuthResults.WithLabelValues("ok").Inc()
			next.ServeHTTP(w, r.WithContext(auth.WithRequestContext(r.Context(), res.Context)))
		})
	}
}
