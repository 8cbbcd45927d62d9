package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const planningContextKey contextKey = "planning_id"

// PlanningContextKey returns the context key used for the planning id. Exposed for tests that inject non-uuid values.
func PlanningContextKey() contextKey { return planningContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithPlanning returns a context with the authorized planning id attached.
func WithPlanning(ctx context.Context, planningID uuid.UUID) context.Context {
	return context.WithValue(ctx, planningContextKey, planningID)
}

// PlanningFromContext returns the authorized planning id from the request context,
// or uuid.Nil if missing or wrong type.
func PlanningFromContext(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(planningContextKey).(uuid.UUID)
	return id
}
