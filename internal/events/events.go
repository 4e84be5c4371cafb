// Package events carries incident domain events to live subscribers and to Kafka.
package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Type names a domain event
type Type string

const (
	TypeIncidentReported        Type = "incident.reported"
	TypeIncidentStatusChanged   Type = "incident.status_changed"
	TypeIncidentCascadeResolved Type = "incident.cascade_resolved"
	TypeNeighborAlertsGenerated Type = "neighbor_alerts.generated"
	TypeZoneBroadcast           Type = "zone.broadcast"
)

// Event is a single domain event
type Event struct {
	Type         Type                   `json:"type"`
	IncidentUUID string                 `json:"incident_uuid"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// New builds an event stamped with the current UTC time
func New(t Type, incidentUUID string, payload map[string]interface{}) Event {
	return Event{
		Type:         t,
		IncidentUUID: incidentUUID,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishLogged publishes e and logs a failure instead of returning it
func PublishLogged(ctx context.Context, p Publisher, log *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil && log != nil {
		log.Warn("failed to publish event",
			zap.String("type", string(e.Type)),
			zap.String("incident_uuid", e.IncidentUUID),
			zap.Error(err),
		)
	}
}
