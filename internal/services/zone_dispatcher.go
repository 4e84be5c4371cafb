package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/identity"
	"github.com/birokt/smittevern/internal/metrics"
	"github.com/birokt/smittevern/internal/notify"
	"github.com/birokt/smittevern/internal/utils"
)

// RegulatorNotifier posts short notices to the regulator channel
type RegulatorNotifier interface {
	NotifyRegulator(ctx context.Context, text string) error
}

// DeliveryResult is the outcome of one recipient's send
type DeliveryResult struct {
	Recipient string                  `json:"recipient"`
	Status    database.DeliveryStatus `json:"status"`
	Error     string                  `json:"error,omitempty"`
}

// BroadcastResult is returned by Broadcast. Success only reflects the audit write.
type BroadcastResult struct {
	Success          bool             `json:"success"`
	NotificationUUID string           `json:"notification_uuid"`
	RecipientCount   int              `json:"recipient_count"`
	DeliveredCount   int              `json:"delivered_count"`
	FailedCount      int              `json:"failed_count"`
	Deliveries       []DeliveryResult `json:"deliveries"`
}

type deliveryJob struct {
	index      int
	deliveryID uint
	mail       notify.Mail
}

// ZoneNotificationDispatcher e-mails an explicit recipient list about an incident
type ZoneNotificationDispatcher struct {
	store     *IncidentStore
	sender    notify.Sender
	notifier  RegulatorNotifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewZoneNotificationDispatcher creates a new dispatcher. notifier may be nil.
func NewZoneNotificationDispatcher(store *IncidentStore, sender notify.Sender, notifier RegulatorNotifier, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *ZoneNotificationDispatcher {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZoneNotificationDispatcher{
		store:     store,
		sender:    sender,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics.OrNew(m),
		logger:    logger,
	}
}

// Broadcast records the audit entry and a pending ledger row per recipient,
// then sends one mail per recipient on a bounded worker pool and waits for all
// of them. Individual send failures never fail the call.
func (d *ZoneNotificationDispatcher) Broadcast(ctx context.Context, actor *identity.Actor, incidentUUID string, radiusMeters int, recipients []string, message string) (*BroadcastResult, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	inc, err := d.store.Get(ctx, incidentUUID)
	if err != nil {
		return nil, err
	}
	settings, err := database.GetOrCreateCorrelationSettings(d.store.DB().WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation settings: %w", err)
	}

	record := database.ZoneNotification{
		UUID:           uuid.New().String(),
		IncidentID:     inc.ID,
		RecipientCount: len(recipients),
		RadiusMeters:   radiusMeters,
		Message:        message,
		CreatedBy:      actor.ID,
	}
	for _, r := range recipients {
		record.Deliveries = append(record.Deliveries, database.ZoneNotificationDelivery{
			Recipient: strings.TrimSpace(r),
			Status:    database.DeliveryStatusPending,
		})
	}

	err = d.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	})
	if err != nil {
		d.logger.Error("failed to record zone notification",
			zap.String("incident_uuid", incidentUUID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to record zone notification: %w", err)
	}
	d.metrics.Broadcasts.Inc()

	subject := broadcastSubject(inc)
	body := broadcastBody(inc, radiusMeters, message)
	jobs := make([]deliveryJob, len(record.Deliveries))
	for i, del := range record.Deliveries {
		jobs[i] = deliveryJob{
			index:      i,
			deliveryID: del.ID,
			mail: notify.Mail{
				FromAlias: settings.MailFromAlias,
				To:        del.Recipient,
				Subject:   subject,
				Body:      body,
				ActorID:   actor.ID,
			},
		}
	}

	results := d.deliver(ctx, jobs, settings.Workers())

	out := &BroadcastResult{
		Success:          true,
		NotificationUUID: record.UUID,
		RecipientCount:   record.RecipientCount,
		Deliveries:       results,
	}
	for _, r := range results {
		if r.Status == database.DeliveryStatusDelivered {
			out.DeliveredCount++
		} else {
			out.FailedCount++
		}
	}

	d.logger.Info("zone broadcast completed",
		zap.String("incident_uuid", incidentUUID),
		zap.String("notification_uuid", record.UUID),
		zap.Int("recipients", out.RecipientCount),
		zap.Int("delivered", out.DeliveredCount),
		zap.Int("failed", out.FailedCount),
	)

	d.notifyRegulator(ctx, inc, out, radiusMeters, message)
	events.PublishLogged(ctx, d.publisher, d.logger, events.New(events.TypeZoneBroadcast, incidentUUID, map[string]interface{}{
		"notification_uuid": record.UUID,
		"recipient_count":   out.RecipientCount,
		"delivered_count":   out.DeliveredCount,
		"failed_count":      out.FailedCount,
		"radius_meters":     radiusMeters,
	}))
	return out, nil
}

// deliver runs jobs on at most workers goroutines and returns results in job order
func (d *ZoneNotificationDispatcher) deliver(ctx context.Context, jobs []deliveryJob, workers int) []DeliveryResult {
	results := make([]DeliveryResult, len(jobs))
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan deliveryJob)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				results[job.index] = d.deliverOne(ctx, job)
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()
	return results
}

func (d *ZoneNotificationDispatcher) deliverOne(ctx context.Context, job deliveryJob) DeliveryResult {
	result := DeliveryResult{Recipient: job.mail.To, Status: database.DeliveryStatusDelivered}
	if err := d.sender.Send(ctx, job.mail); err != nil {
		result.Status = database.DeliveryStatusFailed
		result.Error = err.Error()
		d.logger.Warn("zone notification delivery failed",
			zap.String("recipient", job.mail.To),
			zap.Error(err),
		)
	}
	d.metrics.Deliveries.WithLabelValues(string(result.Status)).Inc()

	attempted := database.NowUTC()
	err := d.store.DB().WithContext(ctx).Model(&database.ZoneNotificationDelivery{}).
		Where("id = ?", job.deliveryID).
		Updates(map[string]interface{}{
			"status":       result.Status,
			"error":        result.Error,
			"attempted_at": attempted,
		}).Error
	if err != nil {
		d.logger.Error("failed to update delivery ledger",
			zap.Uint("delivery_id", job.deliveryID),
			zap.Error(err),
		)
	}
	return result
}

func (d *ZoneNotificationDispatcher) notifyRegulator(ctx context.Context, inc *database.Incident, res *BroadcastResult, radiusMeters int, message string) {
	if d.notifier == nil {
		return
	}
	label := inc.Disease()
	if label == "" {
		label = "ukjent sykdom"
	}
	text := fmt.Sprintf("Sonevarsel sendt for %s (radius %s): %d av %d levert",
		label, utils.FormatDistance(radiusMeters), res.DeliveredCount, res.RecipientCount)
	if excerpt := utils.TruncateText(message, 140); excerpt != "" {
		text += "\n> " + excerpt
	}
	if err := d.notifier.NotifyRegulator(ctx, text); err != nil {
		d.logger.Warn("failed to notify regulator channel", zap.Error(err))
	}
}

// ListBroadcasts returns the audit rows of an incident with their delivery ledgers
func (d *ZoneNotificationDispatcher) ListBroadcasts(ctx context.Context, actor *identity.Actor, incidentUUID string) ([]database.ZoneNotification, error) {
	if err := identity.RequireRegulator(actor); err != nil {
		return nil, err
	}
	inc, err := d.store.Get(ctx, incidentUUID)
	if err != nil {
		return nil, err
	}

	var records []database.ZoneNotification
	err = d.store.DB().WithContext(ctx).
		Preload("Deliveries", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("incident_id = ?", inc.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load zone notifications: %w", err)
	}
	return records, nil
}

func broadcastSubject(inc *database.Incident) string {
	if label := inc.Disease(); label != "" {
		return "Smittevarsel: " + label
	}
	return "Smittevarsel"
}

func broadcastBody(inc *database.Incident, radiusMeters int, message string) string {
	var sb strings.Builder
	if label := inc.Disease(); label != "" {
		fmt.Fprintf(&sb, "Det er påvist %s innenfor %d meter fra din bigård.\n\n", label, radiusMeters)
	} else {
		fmt.Fprintf(&sb, "Det er meldt om smitte innenfor %d meter fra din bigård.\n\n", radiusMeters)
	}
	if message != "" {
		sb.WriteString(message)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Hilsen Mattilsynet")
	return sb.String()
}
