package database

import "time"

// ZoneNotification records one zone broadcast. Rows are written before any
// mail is sent and are never updated, so they reflect intent rather than
// confirmed delivery.
type ZoneNotification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UUID           string    `gorm:"uniqueIndex;not null" json:"uuid"`
	IncidentID     uint      `gorm:"not null;index" json:"incident_id"`
	RecipientCount int       `gorm:"not null" json:"recipient_count"`
	RadiusMeters   int       `gorm:"not null" json:"radius_meters"` // Operator-supplied label, not a computed zone
	Message        string    `gorm:"type:text" json:"message"`
	CreatedBy      string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`

	Deliveries []ZoneNotificationDelivery `gorm:"foreignKey:ZoneNotificationID" json:"deliveries,omitempty"`
}

func (ZoneNotification) TableName() string {
	return "zone_notifications"
}

// DeliveryStatus is the outcome of a single recipient send
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// ZoneNotificationDelivery is the per-recipient ledger of a broadcast
type ZoneNotificationDelivery struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ZoneNotificationID uint           `gorm:"not null;index" json:"zone_notification_id"`
	Recipient          string         `gorm:"type:varchar(255);not null" json:"recipient"`
	Status             DeliveryStatus `gorm:"type:varchar(20);not null" json:"status"`
	Error              string         `gorm:"type:text" json:"error,omitempty"`
	AttemptedAt        *time.Time     `json:"attempted_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

func (ZoneNotificationDelivery) TableName() string {
	return "zone_notification_deliveries"
}
