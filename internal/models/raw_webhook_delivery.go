package models

import (
	"time"

	"gorm.io/datatypes"
)

// RawWebhookDelivery archives the verbatim body of each accepted delivery.
type RawWebhookDelivery struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	DeliveryID *string        `gorm:"type:text;index"`
	Source     string         `gorm:"type:varchar(20);not null"`
	LogCount   int            `gorm:"not null;default:0"`
	ReceivedAt time.Time      `gorm:"type:timestamptz;not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (RawWebhookDelivery) TableName() string {
	return "raw_webhook_deliveries"
}
