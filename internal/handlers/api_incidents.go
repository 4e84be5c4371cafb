package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/services"
)

// handleSubmitReport handles POST /api/reports
func (h *APIHandler) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitReportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := services.ReportInput{
		HiveRef:             req.HiveRef,
		ApiaryRef:           req.ApiaryRef,
		Disease:             req.Disease,
		Description:         req.Description,
		SharedWithRegulator: req.SharedWithRegulator,
	}
	if req.AIClassification != nil {
		in.AIClassification = &database.AIClassification{
			Label:             req.AIClassification.Label,
			ConfidencePercent: req.AIClassification.ConfidencePercent,
			Timestamp:         req.AIClassification.Timestamp.UTC(),
		}
	}

	res, err := h.svc.Reports.Submit(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, res)
}

// handleListIncidents handles GET /api/incidents?kind=&status=&page=&per_page=
// status may repeat or be comma separated.
func (h *APIHandler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := database.IncidentKind(q.Get("kind"))
	switch kind {
	case "", database.IncidentKindPrimary, database.IncidentKindNeighbor:
	default:
		api.RespondValidationError(w, map[string]string{"kind": "must be one of: primary neighbor"})
		return
	}

	pageReq, errs := api.ParsePagination(r)
	if errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	var statuses []database.IncidentStatus
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, database.IncidentStatus(s))
			}
		}
	}

	incidents, err := h.svc.Queries.List(r.Context(), identity.FromContext(r.Context()), kind, statuses)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	page, meta := api.Paginate(api.IncidentsToListItems(incidents), pageReq)
	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{Data: page, Pagination: meta})
}

// handleGetIncident handles GET /api/incidents/{uuid}
func (h *APIHandler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Queries.Detail(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, detail)
}

// handleSetStatus handles POST /api/incidents/{uuid}/status
func (h *APIHandler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req api.SetStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.svc.States.SetStatus(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"), req.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, res)
}

// handleDismiss handles POST /api/incidents/{uuid}/dismiss
func (h *APIHandler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.States.Dismiss(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, res)
}

// handleShare handles POST /api/incidents/{uuid}/share
func (h *APIHandler) handleShare(w http.ResponseWriter, r *http.Request) {
	inc, err := h.svc.States.ShareWithRegulator(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, inc)
}

// handleGenerateNeighborAlerts handles POST /api/incidents/{uuid}/neighbor-alerts.
// The body is optional.
func (h *APIHandler) handleGenerateNeighborAlerts(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateNeighborAlertsRequest
	switch err := api.DecodeJSONLimit(r, &req, api.BulkBodyLimit); {
	case errors.Is(err, api.ErrEmptyBody):
	case err != nil:
		api.RespondDecodeError(w, err)
		return
	case !validateRequest(w, &req):
		return
	}

	res, err := h.svc.Generator.Generate(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"), req.Addressees)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, res)
}

// handleListNeighborAlerts handles GET /api/incidents/{uuid}/neighbor-alerts
func (h *APIHandler) handleListNeighborAlerts(w http.ResponseWriter, r *http.Request) {
	neighbors, err := h.svc.Queries.Neighbors(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.IncidentsToListItems(neighbors))
}

// handleBroadcast handles POST /api/incidents/{uuid}/broadcast
func (h *APIHandler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req api.BroadcastRequest
	if !decodeAndValidateLimit(w, r, &req, api.BulkBodyLimit) {
		return
	}

	res, err := h.svc.Dispatcher.Broadcast(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"), req.RadiusMeters, req.Recipients, req.Message)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, res)
}

// handleListBroadcasts handles GET /api/incidents/{uuid}/broadcasts
func (h *APIHandler) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Dispatcher.ListBroadcasts(r.Context(), identity.FromContext(r.Context()), r.PathValue("uuid"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, records)
}
