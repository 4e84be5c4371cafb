package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRequireRegulator(t *testing.T) {
	tests := []struct {
		name    string
		actor   *Actor
		wantErr error
	}{
		{"nil actor", nil, ErrNotAuthenticated},
		{"anonymous actor", &Actor{}, ErrNotAuthenticated},
		{"reporter", &Actor{ID: "u1", Role: RoleReporter}, ErrForbidden},
		{"unknown role", &Actor{ID: "u1", Role: "beekeeper"}, ErrForbidden},
		{"regulator", &Actor{ID: "u1", Role: RoleRegulator}, nil},
		{"admin", &Actor{ID: "u1", Role: RoleAdmin}, nil},
		{"super admin", &Actor{ID: "u1", Role: RoleSuperAdmin}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRegulator(tt.actor)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RequireRegulator() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorMessagesAreVerbatim(t *testing.T) {
	if ErrNotAuthenticated.Error() != "Not authenticated" {
		t.Errorf("unexpected message %q", ErrNotAuthenticated.Error())
	}
	if ErrForbidden.Error() != "Ingen tilgang" {
		t.Errorf("unexpected message %q", ErrForbidden.Error())
	}
}

func TestActor_NoteLabelAndDisplayName(t *testing.T) {
	tests := []struct {
		actor     *Actor
		wantLabel string
		wantName  string
	}{
		{nil, "SYSTEM", "system"},
		{&Actor{ID: "1", Role: RoleRegulator, Email: "kari@mattilsynet.no"}, "MATTILSYNET", "kari@mattilsynet.no"},
		{&Actor{ID: "2", Role: RoleSuperAdmin, Name: "Ola"}, "ADMIN", "Ola"},
		{&Actor{ID: "3", Role: RoleReporter}, "BIRØKTER", "3"},
	}

	for _, tt := range tests {
		if got := tt.actor.NoteLabel(); got != tt.wantLabel {
			t.Errorf("NoteLabel() = %q, want %q", got, tt.wantLabel)
		}
		if got := tt.actor.DisplayName(); got != tt.wantName {
			t.Errorf("DisplayName() = %q, want %q", got, tt.wantName)
		}
	}
}

func TestCurrentUser(t *testing.T) {
	if _, err := CurrentUser(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	ctx := WithActor(context.Background(), &Actor{ID: "u1", Role: RoleRegulator})
	a, err := CurrentUser(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "u1" {
		t.Errorf("expected actor u1, got %s", a.ID)
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleSuperAdmin) {
		t.Error("super_admin should be valid")
	}
	if ValidRole("root") {
		t.Error("root should not be valid")
	}
}
