package ai

import (
	"context"

	logpkg "github.com/MATHILDEdemariable/jourj/internal/logger"
)

// contextKey scopes logging identifiers carried through provider calls.
type contextKey string

const (
	planningIDContextKey contextKey = "planning_id"
	jobIDContextKey      contextKey = "job_id"
	requestIDContextKey  contextKey = "request_id"
)

// PlanningIDContextKey returns the context key carrying the planning id.
func PlanningIDContextKey() contextKey { return planningIDContextKey }

// JobIDContextKey returns the context key carrying the job id.
func JobIDContextKey() contextKey { return jobIDContextKey }

// RequestIDContextKey returns the context key carrying the request id.
func RequestIDContextKey() contextKey { return requestIDContextKey }

// MaxPreviewLength caps prompt and response previews outside debug mode.
const MaxPreviewLength = 200

// SanitizePrompt makes a prompt safe to log. Debug mode logs more, but
// still bounded and injection-safe.
func SanitizePrompt(prompt string, fullLog bool) string {
	return preview(prompt, fullLog)
}

// SanitizeResponse makes a model response safe to log.
func SanitizeResponse(response string, fullLog bool) string {
	return preview(response, fullLog)
}

func preview(s string, fullLog bool) string {
	maxLen := MaxPreviewLength
	if fullLog {
		maxLen = logpkg.MaxDebugContentLength
	}
	return logpkg.SanitizeString(s, maxLen)
}

// ExtractRequestID reads the request id from the context, if set.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ExtractPlanningID reads the planning id from the context. Accepts both
// uuid values and plain strings.
func ExtractPlanningID(ctx context.Context) string {
	return stringify(ctx.Value(planningIDContextKey))
}

// ExtractJobID reads the job id from the context.
func ExtractJobID(ctx context.Context) string {
	return stringify(ctx.Value(jobIDContextKey))
}

func stringify(v any) string {
	switch id := v.(type) {
	case interface{ String() string }:
		return id.String()
	case string:
		return id
	default:
		return ""
	}
}
