package api

import (
	"time"

	"github.com/birokt/smittevern/internal/database"
)

// ========== Auth Types ==========

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the response body for POST /auth/login.
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// ========== Report Types ==========

// AIClassificationInput is the analyzer output attached to a report.
type AIClassificationInput struct {
	Label             string    `json:"label" validate:"required,max=255"`
	ConfidencePercent float64   `json:"confidence_percent" validate:"gte=0,lte=100"`
	Timestamp         time.Time `json:"timestamp"`
}

// SubmitReportRequest is the request body for POST /api/reports.
// Disease may not contain ',' or ')', which end the label in stored narratives.
type SubmitReportRequest struct {
	HiveRef             *string                `json:"hive_ref" validate:"omitempty,max=64"`
	ApiaryRef           *string                `json:"apiary_ref" validate:"omitempty,max=64"`
	Disease             string                 `json:"disease" validate:"required_without=Description,excludesall=0x2C),max=255"`
	Description         string                 `json:"description" validate:"max=4000"`
	SharedWithRegulator bool                   `json:"shared_with_regulator"`
	AIClassification    *AIClassificationInput `json:"ai_classification"`
}

// ========== Incident Types ==========

// SetStatusRequest is the request body for POST /api/incidents/{uuid}/status.
type SetStatusRequest struct {
	Status database.IncidentStatus `json:"status" validate:"required,oneof=pending investigating resolved"`
}

// GenerateNeighborAlertsRequest is the request body for POST /api/incidents/{uuid}/neighbor-alerts.
// An empty list selects every active apiary owner except the reporter.
type GenerateNeighborAlertsRequest struct {
	Addressees []string `json:"addressees" validate:"omitempty,max=5000,dive,required,max=64"`
}

// BroadcastRequest is the request body for POST /api/incidents/{uuid}/broadcast.
type BroadcastRequest struct {
	RadiusMeters int      `json:"radius_meters" validate:"gte=1,lte=100000"`
	Recipients   []string `json:"recipients" validate:"required,min=1,max=5000,dive,required,max=320"`
	Message      string   `json:"message" validate:"max=4000"`
}

// ========== Settings Types ==========

// UpdateSlackSettingsRequest is the request body for PUT /api/settings/slack.
type UpdateSlackSettingsRequest struct {
	BotToken         *string `json:"bot_token"`
	RegulatorChannel *string `json:"regulator_channel"`
	Enabled          *bool   `json:"enabled"`
}

// UpdateCorrelationSettingsRequest is the request body for PUT /api/settings/correlation.
type UpdateCorrelationSettingsRequest struct {
	CascadeEnabled        *bool   `json:"cascade_enabled"`
	WindowBeforeSeconds   *int    `json:"window_before_seconds" validate:"omitempty,gte=0,lte=3600"`
	WindowAfterMinutes    *int    `json:"window_after_minutes" validate:"omitempty,gte=1,lte=10080"`
	AutoGenerateNeighbors *bool   `json:"auto_generate_neighbors"`
	BroadcastWorkers      *int    `json:"broadcast_workers" validate:"omitempty,gte=1,lte=64"`
	MailFromAlias         *string `json:"mail_from_alias" validate:"omitempty,min=1,max=255"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// ========== Mapper Output Types ==========

// IncidentListItem is a compact representation of an incident for list views.
// It omits the narrative and the analyzer output.
type IncidentListItem struct {
	ID                    uint                    `json:"id"`
	UUID                  string                  `json:"uuid"`
	Kind                  database.IncidentKind   `json:"kind"`
	Status                database.IncidentStatus `json:"status"`
	DiseaseLabel          string                  `json:"disease_label,omitempty"`
	HiveRef               *string                 `json:"hive_ref,omitempty"`
	ApiaryRef             *string                 `json:"apiary_ref,omitempty"`
	OriginatingIncidentID *uint                   `json:"originating_incident_id,omitempty"`
	SharedWithRegulator   bool                    `json:"shared_with_regulator"`
	ResolvedAt            *time.Time              `json:"resolved_at,omitempty"`
	ResolvedBy            string                  `json:"resolved_by,omitempty"`
	CreatedAt             time.Time               `json:"created_at"`
}
