package database

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: NowUTC,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestSlackSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings SlackSettings
		expected bool
	}{
		{
			name:     "all empty",
			settings: SlackSettings{},
			expected: false,
		},
		{
			name:     "only bot token",
			settings: SlackSettings{BotToken: "xoxb-test"},
			expected: false,
		},
		{
			name:     "only channel",
			settings: SlackSettings{RegulatorChannel: "#mattilsynet"},
			expected: false,
		},
		{
			name: "all configured",
			settings: SlackSettings{
				BotToken:         "xoxb-test",
				RegulatorChannel: "#mattilsynet",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.settings.IsConfigured()
			if result != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSlackSettings_IsActive(t *testing.T) {
	configured := SlackSettings{BotToken: "xoxb-test", RegulatorChannel: "#mattilsynet"}

	if configured.IsActive() {
		t.Error("configured but disabled settings should not be active")
	}
	configured.Enabled = true
	if !configured.IsActive() {
		t.Error("configured and enabled settings should be active")
	}
	if (&SlackSettings{Enabled: true}).IsActive() {
		t.Error("enabled but unconfigured settings should not be active")
	}
}

func TestIncident_EffectiveStatus(t *testing.T) {
	tests := []struct {
		status   IncidentStatus
		expected IncidentStatus
	}{
		{"", IncidentStatusPending},
		{IncidentStatusPending, IncidentStatusPending},
		{IncidentStatusInvestigating, IncidentStatusInvestigating},
		{IncidentStatusResolved, IncidentStatusResolved},
	}

	for _, tt := range tests {
		i := Incident{Status: tt.status}
		if got := i.EffectiveStatus(); got != tt.expected {
			t.Errorf("EffectiveStatus(%q) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestIncident_KindAndDisease(t *testing.T) {
	label := "Varroa"
	primary := Incident{Kind: IncidentKindPrimary, DiseaseLabel: &label}
	if !primary.IsPrimary() {
		t.Error("primary incident should report IsPrimary")
	}
	if primary.Disease() != "Varroa" {
		t.Errorf("Disease() = %q, want Varroa", primary.Disease())
	}

	neighbor := Incident{Kind: IncidentKindNeighbor}
	if neighbor.IsPrimary() {
		t.Error("neighbor incident should not report IsPrimary")
	}
	if neighbor.Disease() != "" {
		t.Errorf("Disease() = %q, want empty", neighbor.Disease())
	}
}

func TestValidIncidentStatus(t *testing.T) {
	for _, s := range []IncidentStatus{IncidentStatusPending, IncidentStatusInvestigating, IncidentStatusResolved} {
		if !ValidIncidentStatus(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	if ValidIncidentStatus("closed") {
		t.Error("closed should not be valid")
	}
}

func TestIncidentNote_String(t *testing.T) {
	n := IncidentNote{
		Role:      "MATTILSYNET",
		Action:    "Løst",
		Actor:     "kari@mattilsynet.no",
		CreatedAt: time.Date(2026, 5, 4, 13, 7, 0, 0, time.UTC),
	}
	want := "[MATTILSYNET] Løst 04.05.2026 13:07 av kari@mattilsynet.no"
	if got := n.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRenderNarrative(t *testing.T) {
	ts := time.Date(2026, 5, 4, 13, 7, 0, 0, time.UTC)
	notes := []IncidentNote{
		{Role: "MATTILSYNET", Action: "Under behandling", Actor: "kari", CreatedAt: ts},
		{Role: "MATTILSYNET", Action: "Løst", Actor: "kari", CreatedAt: ts.Add(time.Hour)},
	}

	got := RenderNarrative("Sykdom: Varroa, kube 2", notes)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "Sykdom: Varroa, kube 2" {
		t.Errorf("narrative should start with the original details, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "[MATTILSYNET] Løst") {
		t.Errorf("unexpected last line %q", lines[2])
	}

	if RenderNarrative("", nil) != "" {
		t.Error("empty narrative should render empty")
	}
}

func TestIncident_AIClassificationRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	ts := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	inc := Incident{
		UUID:    "inc-ai",
		Kind:    IncidentKindPrimary,
		Details: "Sykdom: Kalkyngel",
		AIClassification: &AIClassification{
			Label:             "Kalkyngel",
			ConfidencePercent: 87.5,
			Timestamp:         ts,
		},
	}
	if err := db.Create(&inc).Error; err != nil {
		t.Fatalf("failed to create incident: %v", err)
	}

	var loaded Incident
	if err := db.First(&loaded, inc.ID).Error; err != nil {
		t.Fatalf("failed to load incident: %v", err)
	}
	if loaded.AIClassification == nil {
		t.Fatal("expected AI classification to be loaded")
	}
	if loaded.AIClassification.Label != "Kalkyngel" || loaded.AIClassification.ConfidencePercent != 87.5 {
		t.Errorf("unexpected classification %+v", loaded.AIClassification)
	}
	if loaded.Status != IncidentStatusPending {
		t.Errorf("expected default status pending, got %q", loaded.Status)
	}

	bare := Incident{UUID: "inc-bare", Kind: IncidentKindPrimary}
	if err := db.Create(&bare).Error; err != nil {
		t.Fatalf("failed to create incident: %v", err)
	}
	var loadedBare Incident
	db.First(&loadedBare, bare.ID)
	if loadedBare.AIClassification != nil {
		t.Errorf("expected nil classification, got %+v", loadedBare.AIClassification)
	}
}

func TestGetOrCreateSlackSettings(t *testing.T) {
	db := setupTestDB(t)

	first, err := GetOrCreateSlackSettings(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Enabled {
		t.Error("default Slack settings should be disabled")
	}

	first.BotToken = "xoxb-test"
	first.RegulatorChannel = "#mattilsynet"
	first.Enabled = true
	if err := UpdateSlackSettings(db, first); err != nil {
		t.Fatalf("unexpected error updating: %v", err)
	}

	second, err := GetOrCreateSlackSettings(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID || !second.IsActive() {
		t.Errorf("expected updated singleton, got %+v", second)
	}

	var count int64
	db.Model(&SlackSettings{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 settings row, got %d", count)
	}
}
