package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/metrics"
	"github.com/birokt/smittevern/internal/testhelpers"
)

// anchor is the created_at of the primary incident in window tests
var anchor = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	store     *IncidentStore
	publisher *testhelpers.RecordingPublisher
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	return &fixture{
		db:        db,
		store:     NewIncidentStore(db),
		publisher: &testhelpers.RecordingPublisher{},
		metrics:   metrics.New(),
	}
}

func (f *fixture) create(t *testing.T, b *testhelpers.IncidentBuilder) *database.Incident {
	t.Helper()
	inc := b.Build()
	testhelpers.MustCreate(t, f.db, &inc)
	return &inc
}

func (f *fixture) reload(t *testing.T, id uint) *database.Incident {
	t.Helper()
	var inc database.Incident
	if err := f.db.First(&inc, id).Error; err != nil {
		t.Fatalf("failed to reload incident %d: %v", id, err)
	}
	return &inc
}

func (f *fixture) saveSettings(t *testing.T, s database.CorrelationSettings) {
	t.Helper()
	current, err := database.GetOrCreateCorrelationSettings(f.db)
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	s.ID = current.ID
	if err := database.UpdateCorrelationSettings(f.db, &s); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
}

func (f *fixture) resolver() *CorrelationResolver {
	return NewCorrelationResolver(f.store, f.publisher, f.metrics, nil)
}

func (f *fixture) stateMachine() *IncidentStateMachine {
	return NewIncidentStateMachine(f.store, f.resolver(), f.publisher, f.metrics, nil)
}

func regulator() *identity.Actor {
	return &identity.Actor{ID: "reg-1", Email: "kari@mattilsynet.no", Name: "Kari Inspektør", Role: identity.RoleRegulator}
}

func superAdmin() *identity.Actor {
	return &identity.Actor{ID: "admin", Email: "admin@birokt.no", Role: identity.RoleSuperAdmin}
}

func reporter(id string) *identity.Actor {
	return &identity.Actor{ID: id, Email: id + "@example.no", Role: identity.RoleReporter}
}
