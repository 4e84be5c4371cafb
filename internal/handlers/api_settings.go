package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/identity"
)

// requireAdmin writes 401/403 and returns false unless the caller may change settings
func (h *APIHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, err := identity.CurrentUser(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return false
	}
	if !actor.CanAdminister() {
		h.respondServiceError(w, r, identity.ErrForbidden)
		return false
	}
	return true
}

// handleGetCorrelationSettings handles GET /api/settings/correlation
func (h *APIHandler) handleGetCorrelationSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	settings, err := database.GetOrCreateCorrelationSettings(h.db.WithContext(r.Context()))
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get correlation settings")
		return
	}
	api.RespondJSON(w, http.StatusOK, settings)
}

// handleUpdateCorrelationSettings handles PUT /api/settings/correlation.
// Only the fields present in the body change.
func (h *APIHandler) handleUpdateCorrelationSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req api.UpdateCorrelationSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	db := h.db.WithContext(r.Context())
	settings, err := database.GetOrCreateCorrelationSettings(db)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get correlation settings")
		return
	}

	if req.CascadeEnabled != nil {
		settings.CascadeEnabled = *req.CascadeEnabled
	}
	if req.WindowBeforeSeconds != nil {
		settings.WindowBeforeSeconds = *req.WindowBeforeSeconds
	}
	if req.WindowAfterMinutes != nil {
		settings.WindowAfterMinutes = *req.WindowAfterMinutes
	}
	if req.AutoGenerateNeighbors != nil {
		settings.AutoGenerateNeighbors = *req.AutoGenerateNeighbors
	}
	if req.BroadcastWorkers != nil {
		settings.BroadcastWorkers = *req.BroadcastWorkers
	}
	if req.MailFromAlias != nil {
		settings.MailFromAlias = *req.MailFromAlias
	}

	if err := database.UpdateCorrelationSettings(db, settings); err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to update correlation settings")
		return
	}
	h.log.Info("correlation settings updated",
		zap.Bool("cascade_enabled", settings.CascadeEnabled),
		zap.Bool("auto_generate_neighbors", settings.AutoGenerateNeighbors),
		zap.Int("broadcast_workers", settings.BroadcastWorkers),
	)
	api.RespondJSON(w, http.StatusOK, settings)
}

// handleGetSlackSettings handles GET /api/settings/slack
func (h *APIHandler) handleGetSlackSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	settings, err := database.GetOrCreateSlackSettings(h.db.WithContext(r.Context()))
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get Slack settings")
		return
	}
	api.RespondJSON(w, http.StatusOK, slackSettingsResponse(settings))
}

// handleUpdateSlackSettings handles PUT /api/settings/slack and hot-reloads the client
func (h *APIHandler) handleUpdateSlackSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req api.UpdateSlackSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	db := h.db.WithContext(r.Context())
	settings, err := database.GetOrCreateSlackSettings(db)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get Slack settings")
		return
	}

	if req.BotToken != nil {
		settings.BotToken = *req.BotToken
	}
	if req.RegulatorChannel != nil {
		settings.RegulatorChannel = *req.RegulatorChannel
	}
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}

	if err := database.UpdateSlackSettings(db, settings); err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to update Slack settings")
		return
	}

	if h.slack != nil {
		h.slack.TriggerReload()
		h.log.Info("Slack settings updated, triggering hot-reload")
	}
	api.RespondJSON(w, http.StatusOK, slackSettingsResponse(settings))
}

func slackSettingsResponse(s *database.SlackSettings) map[string]interface{} {
	return map[string]interface{}{
		"id":                s.ID,
		"bot_token":         maskToken(s.BotToken),
		"regulator_channel": s.RegulatorChannel,
		"enabled":           s.Enabled,
		"is_configured":     s.IsConfigured(),
		"created_at":        s.CreatedAt,
		"updated_at":        s.UpdatedAt,
	}
}

// maskToken masks a token for display, showing only last 4 characters
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
