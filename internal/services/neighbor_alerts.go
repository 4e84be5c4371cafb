package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/metrics"
	"github.com/birokt/smittevern/internal/profiles"
)

// GenerateResult reports the outcome of neighbor alert generation
type GenerateResult struct {
	PrimaryUUID string              `json:"primary_uuid"`
	Created     []database.Incident `json:"created"`
	Skipped     []string            `json:"skipped,omitempty"` // Addressees already alerted
}

// NeighborAlertGenerator creates neighbor alerts for a primary incident
type NeighborAlertGenerator struct {
	store      *IncidentStore
	candidates profiles.CandidateSelector
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewNeighborAlertGenerator creates a new generator. candidates may be nil,
// in which case callers must always pass explicit addressees.
func NewNeighborAlertGenerator(store *IncidentStore, candidates profiles.CandidateSelector, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *NeighborAlertGenerator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NeighborAlertGenerator{
		store:      store,
		candidates: candidates,
		publisher:  publisher,
		metrics:    metrics.OrNew(m),
		logger:     logger,
		now:        database.NowUTC,
	}
}

// Generate creates neighbor alerts for the primary incident on behalf of a regulator
func (g *NeighborAlertGenerator) Generate(ctx context.Context, actor *identity.Actor, primaryUUID string, addressees []string) (*GenerateResult, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	primary, err := g.store.Get(ctx, primaryUUID)
	if err != nil {
		return nil, err
	}
	return g.GenerateForIncident(ctx, primary, addressees)
}

// GenerateForIncident creates one neighbor alert per addressee in a single
// transaction. Addressees that already hold an alert for this primary are skipped.
func (g *NeighborAlertGenerator) GenerateForIncident(ctx context.Context, primary *database.Incident, addressees []string) (*GenerateResult, error) {
	if !primary.IsPrimary() {
		return nil, ErrNotPrimary
	}
	label := primary.Disease()
	if label == "" {
		return nil, ErrNoDiseaseLabel
	}

	targets := normalizeRefs(addressees)
	if len(targets) == 0 && g.candidates != nil {
		exclude := ""
		if primary.ReporterRef != nil {
			exclude = *primary.ReporterRef
		}
		selected, err := g.candidates.ActiveApiaryOwners(ctx, exclude)
		if err != nil {
			return nil, fmt.Errorf("failed to select candidates: %w", err)
		}
		targets = normalizeRefs(selected)
	}

	result := &GenerateResult{PrimaryUUID: primary.UUID, Created: []database.Incident{}}
	if len(targets) == 0 {
		return result, nil
	}

	settings, err := database.GetOrCreateCorrelationSettings(g.store.DB().WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation settings: %w", err)
	}
	createdAt := g.alertTime(primary, settings)

	err = g.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&database.Incident{}).
			Where("kind = ? AND originating_incident_id = ? AND addressee_ref IN ?", database.IncidentKindNeighbor, primary.ID, targets).
			Pluck("addressee_ref", &existing).Error; err != nil {
			return fmt.Errorf("failed to check existing alerts: %w", err)
		}
		already := make(map[string]bool, len(existing))
		for _, ref := range existing {
			already[ref] = true
		}

		var alerts []database.Incident
		for _, ref := range targets {
			if already[ref] {
				result.Skipped = append(result.Skipped, ref)
				continue
			}
			alerts = append(alerts, g.buildAlert(primary, label, ref, createdAt))
		}
		if len(alerts) == 0 {
			return nil
		}
		if err := tx.Create(&alerts).Error; err != nil {
			return fmt.Errorf("failed to create neighbor alerts: %w", err)
		}
		result.Created = alerts
		return nil
	})
	if err != nil {
		return nil, err
	}

	if n := len(result.Created); n > 0 {
		g.metrics.NeighborsGenerated.Add(float64(n))
		g.logger.Info("generated neighbor alerts",
			zap.String("incident_uuid", primary.UUID),
			zap.String("disease", label),
			zap.Int("created", n),
			zap.Int("skipped", len(result.Skipped)),
		)
		events.PublishLogged(ctx, g.publisher, g.logger, events.New(events.TypeNeighborAlertsGenerated, primary.UUID, map[string]interface{}{
			"disease": label,
			"created": n,
		}))
	}
	return result, nil
}

func (g *NeighborAlertGenerator) buildAlert(primary *database.Incident, label, addressee string, createdAt time.Time) database.Incident {
	primaryID := primary.ID
	labelCopy := label
	addresseeCopy := addressee
	return database.Incident{
		UUID:                  uuid.New().String(),
		Kind:                  database.IncidentKindNeighbor,
		AddresseeRef:          &addresseeCopy,
		OriginatingIncidentID: &primaryID,
		Details:               disease.NeighborMarker(label) + ". Det er meldt om smitte i nærheten av din bigård.",
		DiseaseLabel:          &labelCopy,
		Status:                database.IncidentStatusPending,
		SharedWithRegulator:   false,
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}
}

// alertTime keeps a neighbor alert inside its primary's correlation window,
// falling back to the primary's own timestamp when now lies outside it.
func (g *NeighborAlertGenerator) alertTime(primary *database.Incident, settings *database.CorrelationSettings) time.Time {
	now := g.now().UTC()
	from, to := settings.Window(primary.CreatedAt)
	if now.Before(from) || now.After(to) {
		return primary.CreatedAt.UTC()
	}
	return now
}

func normalizeRefs(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
