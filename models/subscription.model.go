package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionRecord is the reconciliation state this service keeps per
// provider subscription. The provider remains the source of truth for billing;
// this row only tracks what has already been projected onto enrollments so
// redelivered events stay no-ops.
type SubscriptionRecord struct {
	gorm.Model
	SubscriptionID string `json:"subscription_id" gorm:"uniqueIndex;not null"`
	UserID         uint   `json:"user_id" gorm:"index;not null"`
	// CourseID is 0 for the PRO plan subscription, otherwise the mentored
	// course being paid in installments.
	CourseID                   uint       `json:"course_id" gorm:"default:0"`
	TotalPaidCount             int        `json:"total_paid_count" gorm:"default:0"`
	CancelledAfterInstallments bool       `json:"cancelled_after_installments" gorm:"default:false"`
	LastPaidAt                 *time.Time `json:"last_paid_at"`
	ReminderSent               bool       `gorm:"default:false"`
}
