package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/MATHILDEdemariable/jourj/internal/logger"
	"github.com/MATHILDEdemariable/jourj/internal/request"
	"github.com/MATHILDEdemariable/jourj/internal/services/sharetoken"
)

// ShareAuth verifies the share token on planning routes. The token travels
// as a Bearer header or a ?token query parameter; its planning claim must
// match the planning id in the path, and its scope must satisfy the required
// scope (edit tokens also pass view routes). On success the planning id is
// attached to the request context.
func ShareAuth(tokens *sharetoken.Manager, required sharetoken.Scope, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			planningID, scope, err := tokens.Verify(tokenString)
			if err != nil {
				logger.Warn("share_token_rejected",
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.Error(err),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if pathID, err := uuid.Parse(mux.Vars(r)["planningID"]); err == nil && pathID != planningID {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if !scope.Allows(required) {
				logger.Warn("share_token_scope_insufficient",
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("scope", string(scope)),
					zap.String("required", string(required)),
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithPlanning(r.Context(), planningID)))
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
