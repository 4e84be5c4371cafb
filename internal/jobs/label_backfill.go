// Package jobs holds periodic maintenance tasks.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
)

// DefaultBatchSize bounds the rows examined per run
const DefaultBatchSize = 500

// LabelBackfill stores the disease label on incidents created before the label
// column existed. Primaries are read with the "Sykdom:" rule and neighbor
// alerts with the neighbor marker rule. Rows whose narrative carries no
// marker are left alone.
type LabelBackfill struct {
	db        *gorm.DB
	catalog   *disease.Catalog
	batchSize int
	logger    *zap.Logger

	// cursor is the highest id examined; rows that never yield a label
	// must not hold back the ones after them
	cursor uint
}

// NewLabelBackfill creates a new backfill job. catalog may be nil.
func NewLabelBackfill(db *gorm.DB, catalog *disease.Catalog, logger *zap.Logger) *LabelBackfill {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelBackfill{db: db, catalog: catalog, batchSize: DefaultBatchSize, logger: logger}
}

// RunOnce labels up to one batch of unlabeled incidents and returns the
// number updated
func (j *LabelBackfill) RunOnce(ctx context.Context) (int, error) {
	var incidents []database.Incident
	err := j.db.WithContext(ctx).
		Select("id", "uuid", "kind", "details").
		Where("id > ? AND disease_label IS NULL", j.cursor).
		Where("details LIKE ? OR details LIKE ?", "%"+disease.PrimaryMarker+"%", "%"+disease.NeighborPrefix+"%").
		Order("id ASC").
		Limit(j.batchSize).
		Find(&incidents).Error
	if err != nil {
		return 0, err
	}
	if len(incidents) < j.batchSize {
		j.cursor = 0
	} else {
		j.cursor = incidents[len(incidents)-1].ID
	}

	updated := 0
	for _, inc := range incidents {
		label, ok := extractLabel(&inc)
		if !ok {
			continue
		}
		label = j.catalog.Canonical(label)

		res := j.db.WithContext(ctx).Model(&database.Incident{}).
			Where("id = ? AND disease_label IS NULL", inc.ID).
			Update("disease_label", label)
		if res.Error != nil {
			j.logger.Warn("failed to backfill disease label",
				zap.String("incident_uuid", inc.UUID),
				zap.Error(res.Error),
			)
			continue
		}
		updated += int(res.RowsAffected)
	}

	return updated, nil
}

func extractLabel(inc *database.Incident) (string, bool) {
	if inc.IsPrimary() {
		return disease.ExtractPrimary(inc.Details)
	}
	return disease.ExtractNeighbor(inc.Details)
}

// Start runs the job every interval until ctx is done
func (j *LabelBackfill) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updated, err := j.RunOnce(ctx)
			if err != nil {
				j.logger.Error("label backfill failed", zap.Error(err))
			} else if updated > 0 {
				j.logger.Info("backfilled disease labels", zap.Int("updated", updated))
			}
		case <-ctx.Done():
			j.logger.Info("label backfill stopped")
			return
		}
	}
}
