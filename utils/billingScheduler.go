package utils

import (
	"log"
	"time"

	"learnhub/database"
	"learnhub/models"

	"github.com/robfig/cron/v3"
)

// InitializeBillingScheduler sets up the daily billing housekeeping jobs
func InitializeBillingScheduler(mailer *EmailService) {
	log.Println("[SCHEDULER] Initializing billing scheduler...")

	c := cron.New()

	// Run daily at 9 AM
	c.AddFunc("0 9 * * *", func() {
		log.Println("[SCHEDULER] Running daily billing check...")
		SendInstallmentReminders(mailer)
		PurgeOldWebhookLogs()
	})

	c.Start()
	log.Println("[SCHEDULER] Billing scheduler started - runs daily at 9 AM")
}

// SendInstallmentReminders mails users whose installment-priced course
// subscription has a payment coming up within the next few days.
func SendInstallmentReminders(mailer *EmailService) {
	db := database.Database.Db
	dueWindow := time.Now().AddDate(0, -1, 3) // paid ~a month ago, next charge within 3 days

	var records []models.SubscriptionRecord
	if err := db.
		Where("course_id > 0 AND total_paid_count > 0 AND total_paid_count < 3").
		Where("cancelled_after_installments = ? AND reminder_sent = ?", false, false).
		Where("last_paid_at IS NOT NULL AND last_paid_at < ?", dueWindow).
		Find(&records).Error; err != nil {
		log.Printf("[SCHEDULER] Error fetching subscription records: %v", err)
		return
	}

	log.Printf("[SCHEDULER] Found %d subscriptions with an installment due soon", len(records))

	for _, record := range records {
		var user models.User
		if err := db.Where("id = ? AND is_deleted = ?", record.UserID, false).First(&user).Error; err != nil {
			log.Printf("[SCHEDULER] Error fetching user %d: %v", record.UserID, err)
			continue
		}

		if err := mailer.SendInstallmentReminder(user.Email, user.FullName(), record.TotalPaidCount); err != nil {
			log.Printf("[SCHEDULER] Failed to send reminder to %s: %v", user.Email, err)
			continue
		}

		db.Model(&record).Update("reminder_sent", true)
		log.Printf("[SCHEDULER] Sent installment reminder for subscription %s to %s", record.SubscriptionID, user.Email)
	}
}

// PurgeOldWebhookLogs deletes processed webhook log rows older than 90 days
func PurgeOldWebhookLogs() {
	db := database.Database.Db
	cutoff := time.Now().AddDate(0, 0, -90)

	result := db.Unscoped().
		Where("created_at < ? AND status != ?", cutoff, models.WebhookStatusFailed).
		Delete(&models.WebhookEventLog{})
	if result.Error != nil {
		log.Printf("[SCHEDULER] Error purging webhook logs: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[SCHEDULER] Purged %d webhook log rows", result.RowsAffected)
	}
}
