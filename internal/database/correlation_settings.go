package database

import "time"

// CorrelationSettings controls neighbor alert correlation and zone broadcasts
type CorrelationSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Cascade resolution of neighbor alerts when their primary incident is resolved
	CascadeEnabled bool `json:"cascade_enabled"`

	// Correlation window around the primary incident's created_at
	WindowBeforeSeconds int `json:"window_before_seconds"`
	WindowAfterMinutes  int `json:"window_after_minutes"`

	// Generate neighbor alerts synchronously on report intake
	AutoGenerateNeighbors bool `json:"auto_generate_neighbors"`

	// Concurrent mail sends per broadcast
	BroadcastWorkers int `json:"broadcast_workers"`

	MailFromAlias string `gorm:"type:varchar(255)" json:"mail_from_alias"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CorrelationSettings) TableName() string {
	return "correlation_settings"
}

// NewDefaultCorrelationSettings returns settings with default values
func NewDefaultCorrelationSettings() *CorrelationSettings {
	return &CorrelationSettings{
		CascadeEnabled:        true,
		WindowBeforeSeconds:   10,
		WindowAfterMinutes:    60,
		AutoGenerateNeighbors: false,
		BroadcastWorkers:      8,
		MailFromAlias:         "Mattilsynet",
	}
}

// WindowBefore is how far before the primary's created_at a neighbor alert may be
func (s *CorrelationSettings) WindowBefore() time.Duration {
	return time.Duration(s.WindowBeforeSeconds) * time.Second
}

// WindowAfter is how far after the primary's created_at a neighbor alert may be
func (s *CorrelationSettings) WindowAfter() time.Duration {
	return time.Duration(s.WindowAfterMinutes) * time.Minute
}

// Window returns the correlation window anchored at t
func (s *CorrelationSettings) Window(t time.Time) (from, to time.Time) {
	return t.Add(-s.WindowBefore()), t.Add(s.WindowAfter())
}

// Workers returns the broadcast worker count, at least 1
func (s *CorrelationSettings) Workers() int {
	if s.BroadcastWorkers < 1 {
		return 1
	}
	return s.BroadcastWorkers
}
