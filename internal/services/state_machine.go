package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/metrics"
)

// Audit note actions
const (
	ActionInvestigating = "Under behandling"
	ActionResolved      = "Løst"
	ActionShared        = "Delt med Mattilsynet"
)

var allowedTransitions = map[database.IncidentStatus][]database.IncidentStatus{
	database.IncidentStatusPending:       {database.IncidentStatusInvestigating, database.IncidentStatusResolved},
	database.IncidentStatusInvestigating: {database.IncidentStatusResolved},
}

// CanTransition reports whether from -> to is a forward transition
func CanTransition(from, to database.IncidentStatus) bool {
	if from == "" {
		from = database.IncidentStatusPending
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionAction(to database.IncidentStatus) string {
	switch to {
	case database.IncidentStatusInvestigating:
		return ActionInvestigating
	case database.IncidentStatusResolved:
		return ActionResolved
	default:
		return string(to)
	}
}

// TransitionResult is returned by SetStatus
type TransitionResult struct {
	Incident        *database.Incident      `json:"incident"`
	From            database.IncidentStatus `json:"from"`
	To              database.IncidentStatus `json:"to"`
	Note            string                  `json:"note"`
	CascadeResolved int64                   `json:"cascade_resolved"`
	CascadeError    string                  `json:"cascade_error,omitempty"`
}

// IncidentStateMachine applies regulator status transitions
type IncidentStateMachine struct {
	store     *IncidentStore
	resolver  *CorrelationResolver
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewIncidentStateMachine creates a new state machine
func NewIncidentStateMachine(store *IncidentStore, resolver *CorrelationResolver, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *IncidentStateMachine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentStateMachine{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		metrics:   metrics.OrNew(m),
		logger:    logger,
	}
}

// SetStatus moves an incident forward and records an audit note. Resolving a
// primary incident cascades to its neighbor alerts; a cascade failure is
// reported in the result and never fails the call.
func (m *IncidentStateMachine) SetStatus(ctx context.Context, actor *identity.Actor, incidentUUID string, to database.IncidentStatus) (*TransitionResult, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	if !database.ValidIncidentStatus(to) {
		return nil, ErrInvalidStatus
	}

	inc, err := m.store.Get(ctx, incidentUUID)
	if err != nil {
		return nil, err
	}
	from := inc.EffectiveStatus()
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	note := &database.IncidentNote{
		Role:   actor.NoteLabel(),
		Action: transitionAction(to),
		Actor:  actor.DisplayName(),
	}
	err = m.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := m.store.WithTx(tx)
		ok, err := txStore.TransitionStatus(ctx, inc.ID, from, to, actor.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentTransition
		}
		return txStore.AppendNote(ctx, inc.ID, note)
	})
	if err != nil {
		if !errors.Is(err, ErrConcurrentTransition) {
			m.logger.Error("status transition failed",
				zap.String("incident_uuid", incidentUUID),
				zap.String("to", string(to)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	m.metrics.Transitions.WithLabelValues(string(to)).Inc()
	m.logger.Info("incident status changed",
		zap.String("incident_uuid", incidentUUID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)

	updated, err := m.store.Get(ctx, incidentUUID)
	if err != nil {
		// the transition is committed; report it from what was written
		m.logger.Warn("failed to reload incident after transition",
			zap.String("incident_uuid", incidentUUID),
			zap.Error(err),
		)
		updated = afterTransition(inc, to, actor.ID)
	}
	result := &TransitionResult{Incident: updated, From: from, To: to, Note: note.String()}

	if to == database.IncidentStatusResolved && updated.IsPrimary() && m.resolver != nil {
		count, err := m.resolver.Resolve(ctx, updated)
		if err != nil {
			m.logger.Error("cascade resolution failed",
				zap.String("incident_uuid", incidentUUID),
				zap.Error(err),
			)
			result.CascadeError = err.Error()
		}
		result.CascadeResolved = count
	}

	events.PublishLogged(ctx, m.publisher, m.logger, events.New(events.TypeIncidentStatusChanged, incidentUUID, map[string]interface{}{
		"from":             from,
		"to":               to,
		"actor_id":         actor.ID,
		"cascade_resolved": result.CascadeResolved,
	}))
	return result, nil
}

// afterTransition applies a committed transition to a copy of inc
func afterTransition(inc *database.Incident, to database.IncidentStatus, actorRef string) *database.Incident {
	updated := *inc
	updated.Status = to
	if to == database.IncidentStatusResolved {
		now := database.NowUTC()
		updated.ResolvedAt = &now
		updated.ResolvedBy = actorRef
	}
	return &updated
}

// Dismiss resolves an incident. It is the same operation as SetStatus(resolved).
func (m *IncidentStateMachine) Dismiss(ctx context.Context, actor *identity.Actor, incidentUUID string) (*TransitionResult, error) {
	return m.SetStatus(ctx, actor, incidentUUID, database.IncidentStatusResolved)
}

// ShareWithRegulator marks an incident as shared. Allowed for the reporting
// owner and for regulators. Sharing twice is a no-op.
func (m *IncidentStateMachine) ShareWithRegulator(ctx context.Context, actor *identity.Actor, incidentUUID string) (*database.Incident, error) {
	if err := identity.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	inc, err := m.store.Get(ctx, incidentUUID)
	if err != nil {
		return nil, err
	}
	isOwner := inc.ReporterRef != nil && *inc.ReporterRef == actor.ID
	if !isOwner && !actor.CanRegulate() {
		return nil, identity.ErrForbidden
	}
	if inc.SharedWithRegulator {
		return inc, nil
	}

	err = m.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := m.store.WithTx(tx)
		if err := txStore.SetShared(ctx, incidentUUID, true); err != nil {
			return err
		}
		return txStore.AppendNote(ctx, inc.ID, &database.IncidentNote{
			Role:   actor.NoteLabel(),
			Action: ActionShared,
			Actor:  actor.DisplayName(),
		})
	})
	if err != nil {
		return nil, err
	}

	inc.SharedWithRegulator = true
	m.logger.Info("incident shared with regulator",
		zap.String("incident_uuid", incidentUUID),
		zap.String("actor_id", actor.ID),
	)
	return inc, nil
}
