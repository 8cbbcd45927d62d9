package sharetoken

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// Issuer identifies tokens minted by this service
	Issuer = "jourj"
	// DefaultTTL is the default share link lifetime
	DefaultTTL = 30 * 24 * time.Hour

	planningIDClaim = "planning_id"
	scopeClaim      = "scope"
)

// Scope is the access level a share token grants on its planning.
type Scope string

const (
	// ScopeView grants read-only timeline access.
	ScopeView Scope = "view"
	// ScopeEdit grants full timeline access, including mutations.
	ScopeEdit Scope = "edit"
)

// Valid reports whether s is a known scope value.
func (s Scope) Valid() bool {
	return s == ScopeView || s == ScopeEdit
}

// Allows reports whether a token with scope s satisfies the required scope.
// Edit tokens satisfy view routes; view tokens never satisfy edit routes.
func (s Scope) Allows(required Scope) bool {
	if s == required {
		return true
	}
	return s == ScopeEdit && required == ScopeView
}

// Manager mints and verifies planning share tokens. A share token grants
// access to one planning's timeline without an account; the planning id and
// the granted scope travel as signed claims.
type Manager struct {
	secret []byte
}

// NewManager creates a share token manager. The secret must be non-empty.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("share token secret is required")
	}
	return &Manager{secret: []byte(secret)}, nil
}

// Mint creates a signed share token for a planning, valid for ttl. A zero
// ttl falls back to the default.
func (m *Manager) Mint(planningID uuid.UUID, scope Scope, ttl time.Duration) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("invalid token scope %q", scope)
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	token, err := jwt.NewBuilder().
		Issuer(Issuer).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(planningIDClaim, planningID.String()).
		Claim(scopeClaim, string(scope)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks the token signature and expiry and returns the planning id
// and scope it grants. Tokens minted before scopes existed carry no scope
// claim and verify as view-only.
func (m *Manager) Verify(tokenString string) (uuid.UUID, Scope, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to parse/verify token: %w", err)
	}

	raw, ok := token.Get(planningIDClaim)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("token missing planning_id claim")
	}
	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("token planning_id claim is not a string")
	}

	planningID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("token planning_id claim is not a UUID: %w", err)
	}

	scope := ScopeView
	if rawScope, ok := token.Get(scopeClaim); ok {
		scopeStr, ok := rawScope.(string)
		if !ok || !Scope(scopeStr).Valid() {
			return uuid.Nil, "", fmt.Errorf("token scope claim is invalid")
		}
		scope = Scope(scopeStr)
	}

	return planningID, scope, nil
}
