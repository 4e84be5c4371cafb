package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/profiles"
)

// ReporterContact is the regulator-facing view of a reporter
type ReporterContact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IncidentDetail is an incident with its audit trail and reporter contact
type IncidentDetail struct {
	Incident  *database.Incident      `json:"incident"`
	Notes     []database.IncidentNote `json:"notes"`
	Narrative string                  `json:"narrative"`
	Reporter  *ReporterContact        `json:"reporter,omitempty"`
}

// IncidentQueryService serves read-only incident views
type IncidentQueryService struct {
	store    *IncidentStore
	profiles profiles.ProfileDirectory
	logger   *zap.Logger
}

// NewIncidentQueryService creates a new query service. dir may be nil.
func NewIncidentQueryService(store *IncidentStore, dir profiles.ProfileDirectory, logger *zap.Logger) *IncidentQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentQueryService{store: store, profiles: dir, logger: logger}
}

// List returns incidents filtered by kind and status
func (q *IncidentQueryService) List(ctx context.Context, actor *identity.Actor, kind database.IncidentKind, statuses []database.IncidentStatus) ([]database.Incident, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	for _, s := range statuses {
		if !database.ValidIncidentStatus(s) {
			return nil, ErrInvalidStatus
		}
	}
	return q.store.ListByKindAndStatus(ctx, kind, statuses)
}

// Detail returns one incident. Regulators see every incident; reporters only
// their own reports and alerts addressed to them.
func (q *IncidentQueryService) Detail(ctx context.Context, actor *identity.Actor, incidentUUID string) (*IncidentDetail, error) {
	if err := identity.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	inc, err := q.store.Get(ctx, incidentUUID)
	if err != nil {
		return nil, err
	}
	if !actor.CanRegulate() && !involves(inc, actor.ID) {
		return nil, identity.ErrForbidden
	}

	notes, err := q.store.Notes(ctx, inc.ID)
	if err != nil {
		return nil, err
	}

	detail := &IncidentDetail{
		Incident:  inc,
		Notes:     notes,
		Narrative: database.RenderNarrative(inc.Details, notes),
	}
	if inc.ReporterRef != nil && actor.CanRegulate() {
		detail.Reporter = q.reporterContact(ctx, *inc.ReporterRef)
	}
	return detail, nil
}

// reporterContact never fails; lookup errors yield the Ukjent placeholder
func (q *IncidentQueryService) reporterContact(ctx context.Context, userID string) *ReporterContact {
	if q.profiles == nil {
		return &ReporterContact{Name: profiles.UnknownName}
	}
	p, err := q.profiles.LookupProfile(ctx, userID)
	if err != nil || p == nil {
		if err != nil {
			q.logger.Debug("reporter profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return &ReporterContact{Name: profiles.UnknownName}
	}
	name := p.FullName
	if name == "" {
		name = profiles.UnknownName
	}
	return &ReporterContact{Name: name, Email: p.Email, Phone: p.Phone}
}

// Neighbors lists the neighbor alerts generated from a primary incident
func (q *IncidentQueryService) Neighbors(ctx context.Context, actor *identity.Actor, primaryUUID string) ([]database.Incident, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	inc, err := q.store.Get(ctx, primaryUUID)
	if err != nil {
		return nil, err
	}
	if !inc.IsPrimary() {
		return nil, ErrNotPrimary
	}
	return q.store.ListNeighbors(ctx, inc.ID)
}

func involves(inc *database.Incident, userID string) bool {
	if inc.ReporterRef != nil && *inc.ReporterRef == userID {
		return true
	}
	return inc.AddresseeRef != nil && *inc.AddresseeRef == userID
}
