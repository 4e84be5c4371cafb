package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/birokt/smittevern/internal/identity"
)

const testSecret = "test-secret-key-for-jwt"

func newTestJWTMiddleware(t *testing.T) *JWTAuthMiddleware {
	t.Helper()
	hash, err := HashPassword("hemmelig")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
		JWTSecret:         testSecret,
		JWTExpiryHours:    1,
		SkipPaths:         []string{"/health", "/auth/login", "/metrics*"},
		QueryTokenPaths:   []string{"/ws/incidents"},
	}, nil)
}

func captureActor(actor **identity.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*actor = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hemmelig")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPassword("hemmelig", hash) {
		t.Error("CheckPassword should accept the correct password")
	}
	if CheckPassword("feil", hash) {
		t.Error("CheckPassword should reject a wrong password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestJWTMiddleware(t)
	actor := &identity.Actor{ID: "u-42", Email: "kari@mattilsynet.no", Name: "Kari", Role: identity.RoleRegulator}

	token, err := m.GenerateToken(actor)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "u-42" || claims.Role != identity.RoleRegulator || claims.Issuer != TokenIssuer {
		t.Errorf("unexpected claims %+v", claims)
	}
	if got := claims.Actor(); *got != *actor {
		t.Errorf("Actor() = %+v, want %+v", got, actor)
	}
}

func signClaims(t *testing.T, claims UserClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestValidateToken_Rejections(t *testing.T) {
	m := newTestJWTMiddleware(t)
	valid := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signClaims(t, UserClaims{Role: identity.RoleReporter, RegisteredClaims: valid}, "other-secret")},
		{"expired", signClaims(t, UserClaims{Role: identity.RoleReporter, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, testSecret)},
		{"unknown role", signClaims(t, UserClaims{Role: "beekeeper", RegisteredClaims: valid}, testSecret)},
		{"missing subject", signClaims(t, UserClaims{Role: identity.RoleReporter, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("expected token to be rejected")
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	m := newTestJWTMiddleware(t)

	if !m.ValidateCredentials("admin", "hemmelig") {
		t.Error("expected valid credentials to be accepted")
	}
	if m.ValidateCredentials("admin", "feil") {
		t.Error("expected wrong password to be rejected")
	}
	if m.ValidateCredentials("root", "hemmelig") {
		t.Error("expected wrong username to be rejected")
	}

	noPassword := NewJWTAuthMiddleware(&JWTAuthConfig{AdminUsername: "admin"}, nil)
	if noPassword.ValidateCredentials("admin", "") {
		t.Error("login must be impossible without a configured password")
	}
}

func TestAdminActor(t *testing.T) {
	a := newTestJWTMiddleware(t).AdminActor()
	if a.Role != identity.RoleSuperAdmin {
		t.Errorf("expected super_admin role, got %q", a.Role)
	}
	if !a.CanRegulate() || !a.CanAdminister() {
		t.Error("admin login should be able to regulate and administer")
	}
}

func TestJWTMiddleware_AttachesActor(t *testing.T) {
	m := newTestJWTMiddleware(t)
	token, _ := m.GenerateToken(&identity.Actor{ID: "u1", Email: "ola@example.no", Role: identity.RoleReporter})

	var actor *identity.Actor
	handler := m.Wrap(captureActor(&actor))

	req := httptest.NewRequest(http.MethodGet, "/api/incidents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if actor == nil || actor.ID != "u1" || actor.Role != identity.RoleReporter {
		t.Errorf("unexpected actor in context: %+v", actor)
	}
}

func TestJWTMiddleware_Unauthorized(t *testing.T) {
	m := newTestJWTMiddleware(t)
	var actor *identity.Actor
	handler := m.Wrap(captureActor(&actor))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing token", "", "Missing authentication token"},
		{"basic auth", "Basic YWRtaW46YWRtaW4=", "Missing authentication token"},
		{"invalid token", "Bearer nope", "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/incidents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("expected body to contain %q, got %s", tt.want, w.Body.String())
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	m := newTestJWTMiddleware(t)
	var actor *identity.Actor
	handler := m.Wrap(captureActor(&actor))

	for _, path := range []string{"/health", "/auth/login", "/metrics", "/metrics/extra"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestJWTMiddleware_QueryToken(t *testing.T) {
	m := newTestJWTMiddleware(t)
	token, _ := m.GenerateToken(&identity.Actor{ID: "reg-1", Role: identity.RoleRegulator})
	var actor *identity.Actor
	handler := m.Wrap(captureActor(&actor))

	req := httptest.NewRequest(http.MethodGet, "/ws/incidents?token="+token, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK || actor == nil || actor.ID != "reg-1" {
		t.Fatalf("query token should authenticate the feed, got %d %+v", w.Code, actor)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/incidents?token="+token, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token must not work outside the feed, got %d", w.Code)
	}
}

func TestJWTMiddleware_Disabled(t *testing.T) {
	m := newTestJWTMiddleware(t)
	m.SetEnabled(false)
	if m.IsEnabled() {
		t.Fatal("expected middleware to be disabled")
	}

	var actor *identity.Actor
	handler := m.Wrap(captureActor(&actor))
	req := httptest.NewRequest(http.MethodGet, "/api/incidents", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if actor != nil {
		t.Error("no actor should be attached when auth is disabled")
	}
}
