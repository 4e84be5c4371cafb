package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
)

// pendingCondition matches pending incidents, including rows whose status was never set
const pendingCondition = "(status = ? OR status = '' OR status IS NULL)"

// IncidentStore persists incidents and their audit notes
type IncidentStore struct {
	db *gorm.DB
}

// NewIncidentStore creates a new incident store
func NewIncidentStore(db *gorm.DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// WithTx returns a store bound to tx
func (s *IncidentStore) WithTx(tx *gorm.DB) *IncidentStore {
	return &IncidentStore{db: tx}
}

// DB returns the underlying connection
func (s *IncidentStore) DB() *gorm.DB {
	return s.db
}

// Create inserts an incident, assigning a UUID and defaults when unset
func (s *IncidentStore) Create(ctx context.Context, inc *database.Incident) (string, error) {
	if inc.UUID == "" {
		inc.UUID = uuid.New().String()
	}
	if inc.Kind == "" {
		inc.Kind = database.IncidentKindPrimary
	}
	if inc.Status == "" {
		inc.Status = database.IncidentStatusPending
	}
	if err := s.db.WithContext(ctx).Create(inc).Error; err != nil {
		return "", fmt.Errorf("failed to create incident: %w", err)
	}
	return inc.UUID, nil
}

// Get returns the incident with the given UUID
func (s *IncidentStore) Get(ctx context.Context, incidentUUID string) (*database.Incident, error) {
	var inc database.Incident
	err := s.db.WithContext(ctx).Where("uuid = ?", incidentUUID).First(&inc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load incident: %w", err)
	}
	return &inc, nil
}

// ListByKindAndStatus lists incidents newest first. An empty kind or status
// filter matches everything; pending also matches an unset status.
func (s *IncidentStore) ListByKindAndStatus(ctx context.Context, kind database.IncidentKind, statuses []database.IncidentStatus) ([]database.Incident, error) {
	q := s.db.WithContext(ctx).Model(&database.Incident{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if len(statuses) > 0 {
		includePending := false
		for _, st := range statuses {
			if st == database.IncidentStatusPending {
				includePending = true
			}
		}
		if includePending {
			q = q.Where("(status IN ? OR status = '' OR status IS NULL)", statuses)
		} else {
			q = q.Where("status IN ?", statuses)
		}
	}

	var incidents []database.Incident
	if err := q.Order("created_at DESC").Order("id DESC").Find(&incidents).Error; err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}

// ListNeighbors returns the neighbor alerts generated from a primary incident
func (s *IncidentStore) ListNeighbors(ctx context.Context, primaryID uint) ([]database.Incident, error) {
	var incidents []database.Incident
	err := s.db.WithContext(ctx).
		Where("kind = ? AND originating_incident_id = ?", database.IncidentKindNeighbor, primaryID).
		Order("created_at ASC").Order("id ASC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list neighbor alerts: %w", err)
	}
	return incidents, nil
}

// CascadeMatch selects the neighbor alerts a resolved primary incident owns.
// Labels holds every spelling the primary is known by: its stored label and,
// for reports written before labels were stored, the one in its narrative.
type CascadeMatch struct {
	PrimaryID uint
	Labels    []string
	From      time.Time
	To        time.Time
}

// BulkUpdateStatus transitions every pending, unshared neighbor alert that
// belongs to the primary (by FK, or by label or marker text for rows created
// before the FK existed) and was created inside the window. Runs as a single UPDATE.
func (s *IncidentStore) BulkUpdateStatus(ctx context.Context, m CascadeMatch, newStatus database.IncidentStatus, resolvedBy string) (int64, error) {
	if len(m.Labels) == 0 {
		return 0, nil
	}

	updates := map[string]interface{}{
		"status": newStatus,
	}
	if newStatus == database.IncidentStatusResolved {
		updates["resolved_at"] = database.NowUTC()
		updates["resolved_by"] = resolvedBy
	}

	owner, args := legacyOwnerCondition(m.Labels)
	result := s.db.WithContext(ctx).Model(&database.Incident{}).
		Where("kind = ?", database.IncidentKindNeighbor).
		Where("shared_with_regulator = ?", false).
		Where(pendingCondition, database.IncidentStatusPending).
		Where("created_at >= ? AND created_at <= ?", m.From.UTC(), m.To.UTC()).
		Where(
			"((originating_incident_id = ? AND disease_label IN ?) OR (originating_incident_id IS NULL AND ("+owner+")))",
			append([]interface{}{m.PrimaryID, m.Labels}, args...)...,
		).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update neighbor alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// legacyOwnerCondition matches FK-less neighbor alerts by backfilled label or
// by marker text. LIKE is case-sensitive on Postgres and ASCII-only
// case-insensitive on SQLite, so each marker is tried verbatim and lowered.
func legacyOwnerCondition(labels []string) (string, []interface{}) {
	clauses := []string{"disease_label IN ?"}
	args := []interface{}{labels}
	for _, label := range labels {
		marker := disease.NeighborMarker(label)
		clauses = append(clauses,
			`details LIKE ? ESCAPE '\'`,
			`LOWER(details) LIKE ? ESCAPE '\'`,
		)
		args = append(args,
			"%"+escapeLike(marker)+"%",
			"%"+escapeLike(strings.ToLower(marker))+"%",
		)
	}
	return strings.Join(clauses, " OR "), args
}

// TransitionStatus moves one incident from `from` to `to` only if it still has
// status `from`. Returns false when another writer changed it first.
func (s *IncidentStore) TransitionStatus(ctx context.Context, id uint, from, to database.IncidentStatus, actorRef string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == database.IncidentStatusResolved {
		updates["resolved_at"] = database.NowUTC()
		updates["resolved_by"] = actorRef
	}

	q := s.db.WithContext(ctx).Model(&database.Incident{}).Where("id = ?", id)
	if from == database.IncidentStatusPending {
		q = q.Where(pendingCondition, from)
	} else {
		q = q.Where("status = ?", from)
	}

	result := q.Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update incident status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SetShared sets the shared_with_regulator flag
func (s *IncidentStore) SetShared(ctx context.Context, incidentUUID string, shared bool) error {
	result := s.db.WithContext(ctx).Model(&database.Incident{}).
		Where("uuid = ?", incidentUUID).
		Update("shared_with_regulator", shared)
	if result.Error != nil {
		return fmt.Errorf("failed to update incident: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

// AppendNote adds an entry to the incident's audit trail
func (s *IncidentStore) AppendNote(ctx context.Context, incidentID uint, note *database.IncidentNote) error {
	note.ID = 0
	note.IncidentID = incidentID
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}
	return nil
}

// Notes returns the audit trail oldest first
func (s *IncidentStore) Notes(ctx context.Context, incidentID uint) ([]database.IncidentNote, error) {
	var notes []database.IncidentNote
	err := s.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("created_at ASC").Order("id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	return notes, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
