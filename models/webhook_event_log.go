package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	WebhookStatusProcessed = "PROCESSED"
	WebhookStatusFailed    = "FAILED"
	WebhookStatusSkipped   = "SKIPPED"
)

// WebhookEventLog records every payment provider event this service has seen.
// Successfully processed event ids are used to drop provider redeliveries.
type WebhookEventLog struct {
	gorm.Model
	EventID   string         `json:"event_id" gorm:"index;not null"`
	EventType string         `json:"event_type" gorm:"not null"`
	Status    string         `json:"status" gorm:"not null"`
	Error     string         `json:"error" gorm:"default:''"`
	Payload   datatypes.JSON `json:"payload"`
}
