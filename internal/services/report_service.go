package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/disease"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/metrics"
	"github.com/birokt/smittevern/internal/utils"
)

// ReportInput is a reporter's sickness report
type ReportInput struct {
	HiveRef             *string
	ApiaryRef           *string
	Disease             string
	Description         string
	SharedWithRegulator bool
	AIClassification    *database.AIClassification
}

// ReportResult is the stored primary incident plus any automatic neighbor alerts
type ReportResult struct {
	Incident       *database.Incident `json:"incident"`
	NeighborAlerts *GenerateResult    `json:"neighbor_alerts,omitempty"`
	NeighborError  string             `json:"neighbor_error,omitempty"`
}

// ReportService handles sickness report intake
type ReportService struct {
	store     *IncidentStore
	catalog   *disease.Catalog
	generator *NeighborAlertGenerator
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewReportService creates a new report service. generator may be nil when
// neighbor alerts are only ever generated by regulators.
func NewReportService(store *IncidentStore, catalog *disease.Catalog, generator *NeighborAlertGenerator, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *ReportService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:     store,
		catalog:   catalog,
		generator: generator,
		publisher: publisher,
		metrics:   metrics.OrNew(m),
		logger:    logger,
	}
}

// Submit stores a primary incident. The narrative is composed as
// "Sykdom: <label>, <description>" and the disease label is derived from it
// once, here, then stored alongside.
func (s *ReportService) Submit(ctx context.Context, actor *identity.Actor, in ReportInput) (*ReportResult, error) {
	if err := identity.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	details := disease.PrimaryNarrative(strings.TrimSpace(in.Disease), strings.TrimSpace(in.Description))
	reporter := actor.ID
	inc := &database.Incident{
		Kind:                database.IncidentKindPrimary,
		HiveRef:             in.HiveRef,
		ApiaryRef:           in.ApiaryRef,
		ReporterRef:         &reporter,
		Details:             details,
		Status:              database.IncidentStatusPending,
		SharedWithRegulator: in.SharedWithRegulator,
		AIClassification:    in.AIClassification,
	}
	if label, ok := disease.ExtractPrimary(details); ok {
		canonical := s.catalog.Canonical(label)
		inc.DiseaseLabel = &canonical
	}

	if _, err := s.store.Create(ctx, inc); err != nil {
		s.logger.Error("failed to store report", zap.String("reporter", reporter), zap.Error(err))
		return nil, err
	}
	s.metrics.ReportsReceived.Inc()
	s.logger.Info("sickness report received",
		zap.String("incident_uuid", inc.UUID),
		zap.String("disease", inc.Disease()),
		zap.Bool("shared", inc.SharedWithRegulator),
		zap.String("details", utils.EscapeForLogging(inc.Details, 200)),
	)
	events.PublishLogged(ctx, s.publisher, s.logger, events.New(events.TypeIncidentReported, inc.UUID, map[string]interface{}{
		"disease": inc.Disease(),
		"shared":  inc.SharedWithRegulator,
	}))

	result := &ReportResult{Incident: inc}
	s.maybeGenerate(ctx, inc, result)
	return result, nil
}

// maybeGenerate runs neighbor generation when enabled. Failures never fail intake.
func (s *ReportService) maybeGenerate(ctx context.Context, inc *database.Incident, result *ReportResult) {
	if s.generator == nil || inc.Disease() == "" {
		return
	}
	settings, err := database.GetOrCreateCorrelationSettings(s.store.DB().WithContext(ctx))
	if err != nil {
		s.logger.Warn("failed to load correlation settings", zap.Error(err))
		result.NeighborError = err.Error()
		return
	}
	if !settings.AutoGenerateNeighbors {
		return
	}

	generated, err := s.generator.GenerateForIncident(ctx, inc, nil)
	if err != nil {
		s.logger.Warn("automatic neighbor alert generation failed",
			zap.String("incident_uuid", inc.UUID),
			zap.Error(err),
		)
		result.NeighborError = err.Error()
		return
	}
	result.NeighborAlerts = generated
}
