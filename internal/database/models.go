package database

import (
	"strings"
	"time"
)

// SlackSettings stores the regulator channel integration
type SlackSettings struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	BotToken         string    `gorm:"type:text" json:"bot_token"`
	RegulatorChannel string    `gorm:"type:varchar(255)" json:"regulator_channel"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsConfigured returns true if the bot token and channel are set
func (s *SlackSettings) IsConfigured() bool {
	return s.BotToken != "" && s.RegulatorChannel != ""
}

// IsActive returns true if Slack is enabled and configured
func (s *SlackSettings) IsActive() bool {
	return s.Enabled && s.IsConfigured()
}

// IncidentKind distinguishes operator reports from system-generated alerts
type IncidentKind string

const (
	IncidentKindPrimary  IncidentKind = "primary"
	IncidentKindNeighbor IncidentKind = "neighbor"
)

// IncidentStatus represents the triage status of an incident
type IncidentStatus string

const (
	IncidentStatusPending       IncidentStatus = "pending"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
)

// ValidIncidentStatus reports whether s is a known status
func ValidIncidentStatus(s IncidentStatus) bool {
	switch s {
	case IncidentStatusPending, IncidentStatusInvestigating, IncidentStatusResolved:
		return true
	}
	return false
}

// AIClassification is the advisory output of the image/text analyzer
type AIClassification struct {
	Label             string    `json:"label"`
	ConfidencePercent float64   `json:"confidence_percent"`
	Timestamp         time.Time `json:"timestamp"`
}

// Incident is a disease report (primary) or a neighbor alert derived from one
type Incident struct {
	ID    uint         `gorm:"primaryKey" json:"id"`
	UUID  string       `gorm:"uniqueIndex;not null" json:"uuid"`
	Kind  IncidentKind `gorm:"type:varchar(20);not null;default:'primary';index" json:"kind"`

	HiveRef      *string `gorm:"type:varchar(64)" json:"hive_ref,omitempty"`
	ApiaryRef    *string `gorm:"type:varchar(64)" json:"apiary_ref,omitempty"`
	ReporterRef  *string `gorm:"type:varchar(64);index" json:"reporter_ref,omitempty"`  // Primary reports only
	AddresseeRef *string `gorm:"type:varchar(64);index" json:"addressee_ref,omitempty"` // Neighbor alerts only

	// Set on neighbor alerts at generation time
	OriginatingIncidentID *uint `gorm:"index" json:"originating_incident_id,omitempty"`

	Details      string  `gorm:"type:text" json:"details"`
	DiseaseLabel *string `gorm:"type:varchar(255);index" json:"disease_label,omitempty"` // Set once at creation

	Status              IncidentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	SharedWithRegulator bool           `gorm:"not null" json:"shared_with_regulator"`

	AIClassification *AIClassification `gorm:"type:jsonb;serializer:json" json:"ai_classification,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `gorm:"type:varchar(255)" json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EffectiveStatus treats an unset status as pending
func (i *Incident) EffectiveStatus() IncidentStatus {
	if i.Status == "" {
		return IncidentStatusPending
	}
	return i.Status
}

// IsPrimary reports whether the incident was filed by a reporter
func (i *Incident) IsPrimary() bool {
	return i.Kind == IncidentKindPrimary || i.Kind == ""
}

// Disease returns the stored disease label, or "" when none was derived
func (i *Incident) Disease() string {
	if i.DiseaseLabel == nil {
		return ""
	}
	return *i.DiseaseLabel
}

// IncidentNote is one entry in an incident's append-only audit trail
type IncidentNote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	IncidentID uint      `gorm:"not null;index" json:"incident_id"`
	Role       string    `gorm:"type:varchar(50);not null" json:"role"` // Bracketed label, e.g. MATTILSYNET
	Action     string    `gorm:"type:varchar(255);not null" json:"action"`
	Actor      string    `gorm:"type:varchar(255);not null" json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

// NoteTimestampLayout is the timestamp format used in rendered notes
const NoteTimestampLayout = "02.01.2006 15:04"

// String renders the note as "[ROLE] <action> <timestamp> av <actor>"
func (n IncidentNote) String() string {
	return "[" + n.Role + "] " + n.Action + " " + n.CreatedAt.Format(NoteTimestampLayout) + " av " + n.Actor
}

// RenderNarrative joins the incident narrative with its audit notes
func RenderNarrative(details string, notes []IncidentNote) string {
	var sb strings.Builder
	sb.WriteString(details)
	for _, n := range notes {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(n.String())
	}
	return sb.String()
}

// Profile is the read model of a platform user's contact details
type Profile struct {
	UserID          string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	FullName        string    `gorm:"type:varchar(255)" json:"full_name"`
	Email           string    `gorm:"type:varchar(255)" json:"email"`
	Phone           string    `gorm:"type:varchar(50)" json:"phone"`
	HasActiveApiary bool      `gorm:"index" json:"has_active_apiary"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName overrides for explicit table naming
func (Incident) TableName() string {
	return "incidents"
}

func (IncidentNote) TableName() string {
	return "incident_notes"
}

func (Profile) TableName() string {
	return "profiles"
}

func (SlackSettings) TableName() string {
	return "slack_settings"
}
