package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/services"
)

// SlackReloader rebuilds the Slack client after its settings change
type SlackReloader interface {
	TriggerReload()
}

// APIServices groups the services behind the JSON API
type APIServices struct {
	Reports    *services.ReportService
	Queries    *services.IncidentQueryService
	States     *services.IncidentStateMachine
	Generator  *services.NeighborAlertGenerator
	Dispatcher *services.ZoneNotificationDispatcher
}

// APIHandler handles the /api endpoints
type APIHandler struct {
	svc   APIServices
	db    *gorm.DB
	slack SlackReloader
	log   *zap.Logger
}

// NewAPIHandler creates a new API handler. slack may be nil.
func NewAPIHandler(svc APIServices, db *gorm.DB, slack SlackReloader, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{svc: svc, db: db, slack: slack, log: logger}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports", h.handleSubmitReport)

	mux.HandleFunc("GET /api/incidents", h.handleListIncidents)
	mux.HandleFunc("GET /api/incidents/{uuid}", h.handleGetIncident)
	mux.HandleFunc("POST /api/incidents/{uuid}/status", h.handleSetStatus)
	mux.HandleFunc("POST /api/incidents/{uuid}/dismiss", h.handleDismiss)
	mux.HandleFunc("POST /api/incidents/{uuid}/share", h.handleShare)
	mux.HandleFunc("POST /api/incidents/{uuid}/neighbor-alerts", h.handleGenerateNeighborAlerts)
	mux.HandleFunc("GET /api/incidents/{uuid}/neighbor-alerts", h.handleListNeighborAlerts)
	mux.HandleFunc("POST /api/incidents/{uuid}/broadcast", h.handleBroadcast)
	mux.HandleFunc("GET /api/incidents/{uuid}/broadcasts", h.handleListBroadcasts)

	mux.HandleFunc("GET /api/settings/correlation", h.handleGetCorrelationSettings)
	mux.HandleFunc("PUT /api/settings/correlation", h.handleUpdateCorrelationSettings)
	mux.HandleFunc("GET /api/settings/slack", h.handleGetSlackSettings)
	mux.HandleFunc("PUT /api/settings/slack", h.handleUpdateSlackSettings)
}

// respondServiceError maps service and authorization errors to HTTP statuses
func (h *APIHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if api.RespondAuthError(w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrIncidentNotFound):
		api.RespondError(w, http.StatusNotFound, "Incident not found")
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConcurrentTransition):
		api.RespondErrorWithCode(w, http.StatusConflict, api.CodeConflict, err.Error())
	case errors.Is(err, services.ErrNotPrimary),
		errors.Is(err, services.ErrNoDiseaseLabel),
		errors.Is(err, services.ErrNoRecipients),
		errors.Is(err, services.ErrInvalidStatus):
		api.RespondErrorWithCode(w, http.StatusUnprocessableEntity, api.CodeInvalidRequest, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		api.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeAndValidate decodes a body of at most api.DefaultBodyLimit bytes into
// dst and runs its validate tags. It writes the error response and returns
// false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidateLimit(w, r, dst, api.DefaultBodyLimit)
}

func decodeAndValidateLimit(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) bool {
	if err := api.DecodeJSONLimit(r, dst, limit); err != nil {
		api.RespondDecodeError(w, err)
		return false
	}
	return validateRequest(w, dst)
}

func validateRequest(w http.ResponseWriter, dst interface{}) bool {
	if errs := api.Validate(dst); errs != nil {
		api.RespondValidationError(w, errs)
		return false
	}
	return true
}
