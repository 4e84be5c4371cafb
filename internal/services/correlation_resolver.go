package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/metrics"
)

// CascadeResolvedByPrefix prefixes resolved_by on cascaded neighbor alerts
const CascadeResolvedByPrefix = "cascade:"

// CorrelationResolver resolves the neighbor alerts spawned by a resolved primary incident
type CorrelationResolver struct {
	store     *IncidentStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCorrelationResolver creates a new correlation resolver
func NewCorrelationResolver(store *IncidentStore, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *CorrelationResolver {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrelationResolver{
		store:     store,
		publisher: publisher,
		metrics:   metrics.OrNew(m),
		logger:    logger,
	}
}

// Resolve cascades resolution from primary to its pending, unshared neighbor
// alerts inside the correlation window. A primary saved before labels were
// stored is matched by the label in its narrative. Neighbor incidents,
// primaries with no label at all and a disabled cascade resolve nothing.
func (r *CorrelationResolver) Resolve(ctx context.Context, primary *database.Incident) (int64, error) {
	if primary == nil || !primary.IsPrimary() {
		return 0, nil
	}
	labels := cascadeLabels(primary)
	if len(labels) == 0 {
		return 0, nil
	}
	label := labels[0]

	settings, err := database.GetOrCreateCorrelationSettings(r.store.DB().WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to load correlation settings: %w", err)
	}
	if !settings.CascadeEnabled {
		r.logger.Debug("cascade disabled, skipping", zap.String("incident_uuid", primary.UUID))
		return 0, nil
	}

	from, to := settings.Window(primary.CreatedAt)
	count, err := r.store.BulkUpdateStatus(ctx, CascadeMatch{
		PrimaryID: primary.ID,
		Labels:    labels,
		From:      from,
		To:        to,
	}, database.IncidentStatusResolved, CascadeResolvedByPrefix+primary.UUID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		r.metrics.CascadeResolved.Add(float64(count))
		r.logger.Info("cascade resolved neighbor alerts",
			zap.String("incident_uuid", primary.UUID),
			zap.String("disease", label),
			zap.Int64("resolved", count),
		)
		events.PublishLogged(ctx, r.publisher, r.logger, events.New(events.TypeIncidentCascadeResolved, primary.UUID, map[string]interface{}{
			"disease":  label,
			"resolved": count,
		}))
	}
	return count, nil
}

// cascadeLabels returns the stored label followed by the narrative label when
// they differ
func cascadeLabels(primary *database.Incident) []string {
	var labels []string
	if stored := primary.Disease(); stored != "" {
		labels = append(labels, stored)
	}
	if raw, ok := disease.ExtractPrimary(primary.Details); ok {
		if len(labels) == 0 || !strings.EqualFold(labels[0], raw) {
			labels = append(labels, raw)
		}
	}
	return labels
}
