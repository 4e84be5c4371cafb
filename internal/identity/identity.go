// Package identity describes the authenticated caller of an action.
package identity

import (
	"context"
	"errors"
	"strings"
)

// Role is the access role carried in the caller's token
type Role string

const (
	RoleReporter   Role = "reporter"
	RoleRegulator  Role = "regulator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Authorization errors. Their messages are surfaced verbatim to callers.
var (
	ErrNotAuthenticated = errors.New("Not authenticated")
	ErrForbidden        = errors.New("Ingen tilgang")
)

// Actor is the caller of an action
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// ValidRole reports whether r is a known role
func ValidRole(r Role) bool {
	switch r {
	case RoleReporter, RoleRegulator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsSuperAdmin reports whether the actor holds the super_admin role
func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

// CanRegulate reports whether the actor may triage incidents and send zone broadcasts
func (a *Actor) CanRegulate() bool {
	if a == nil {
		return false
	}
	switch a.Role {
	case RoleRegulator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanAdminister reports whether the actor may change service settings
func (a *Actor) CanAdminister() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleSuperAdmin)
}

// DisplayName is the name used when attributing audit notes
func (a *Actor) DisplayName() string {
	switch {
	case a == nil:
		return "system"
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	default:
		return a.ID
	}
}

// NoteLabel is the bracketed role label written into audit notes
func (a *Actor) NoteLabel() string {
	if a == nil {
		return "SYSTEM"
	}
	switch a.Role {
	case RoleRegulator:
		return "MATTILSYNET"
	case RoleAdmin, RoleSuperAdmin:
		return "ADMIN"
	case RoleReporter:
		return "BIRØKTER"
	default:
		return strings.ToUpper(string(a.Role))
	}
}

// RequireRegulator returns an authorization error unless the actor may regulate
func RequireRegulator(a *Actor) error {
	if a == nil || a.ID == "" {
		return ErrNotAuthenticated
	}
	if !a.CanRegulate() {
		return ErrForbidden
	}
	return nil
}

// RequireAuthenticated returns ErrNotAuthenticated for an anonymous actor
func RequireAuthenticated(a *Actor) error {
	if a == nil || a.ID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

type actorContextKey struct{}

// WithActor returns a copy of ctx carrying the actor
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// FromContext returns the actor stored in ctx, or nil
func FromContext(ctx context.Context) *Actor {
	if a, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return a
	}
	return nil
}

// CurrentUser returns the actor stored in ctx or ErrNotAuthenticated
func CurrentUser(ctx context.Context) (*Actor, error) {
	a := FromContext(ctx)
	if err := RequireAuthenticated(a); err != nil {
		return nil, err
	}
	return a, nil
}
