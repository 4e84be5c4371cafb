package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	jwtAuth     *middleware.JWTAuthMiddleware
	expiryHours int
	logger      *zap.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(jwtAuth *middleware.JWTAuthMiddleware, expiryHours int, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &AuthHandler{
		jwtAuth:     jwtAuth,
		expiryHours: expiryHours,
		logger:      logger,
	}
}

// SetupRoutes sets up authentication routes
func (h *AuthHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/verify", h.handleVerify)
}

// handleLogin handles POST /auth/login. Only the configured admin can log in
// here; reporters and regulators get their tokens from the identity provider.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req api.LoginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		api.RespondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if !h.jwtAuth.ValidateCredentials(req.Username, req.Password) {
		h.logger.Warn("failed login attempt",
			zap.String("username", req.Username),
			zap.String("remote_addr", r.RemoteAddr),
		)
		api.RespondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.jwtAuth.GenerateToken(h.jwtAuth.AdminActor())
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("username", req.Username), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.logger.Info("admin logged in", zap.String("username", req.Username), zap.String("remote_addr", r.RemoteAddr))

	api.RespondJSON(w, http.StatusOK, api.LoginResponse{
		Token:     token,
		Username:  req.Username,
		ExpiresIn: h.expiryHours * 60 * 60,
	})
}

// handleVerify handles GET /auth/verify and echoes the caller's identity
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	actor, err := identity.CurrentUser(r.Context())
	if err != nil {
		if !api.RespondAuthError(w, err) {
			api.RespondError(w, http.StatusUnauthorized, err.Error())
		}
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  actor,
	})
}
