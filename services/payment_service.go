package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"learnhub/models"
	courseModels "learnhub/models/course"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider event types this service reconciles. Anything else is acknowledged
// and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.paid"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	billingReasonCreate = "subscription_create"

	// Installment-priced mentored courses stop billing after this many
	// successful payments; the enrollment stays active for life.
	installmentLimit = 3
)

// BillingClient talks back to the payment provider.
type BillingClient interface {
	// CancelSubscription stops future billing at the end of the current period.
	CancelSubscription(subscriptionID string) error
}

// PaymentService projects billing events from the payment provider onto
// enrollments, purchases and user plans. The provider delivers at least once
// and out of order, so every handler tolerates re-application.
type PaymentService struct {
	db          *gorm.DB
	enrollments *EnrollmentService
	billing     BillingClient
	mailer      Mailer
	secret      string
	planProduct string
}

func NewPaymentService(db *gorm.DB, enrollments *EnrollmentService, billing BillingClient, mailer Mailer, secret, planProduct string) *PaymentService {
	return &PaymentService{
		db:          db,
		enrollments: enrollments,
		billing:     billing,
		mailer:      mailer,
		secret:      secret,
		planProduct: planProduct,
	}
}

type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSession struct {
	Customer          string     `json:"customer"`
	CustomerEmail     string     `json:"customer_email"`
	ClientReferenceID string     `json:"client_reference_id"`
	Subscription      string     `json:"subscription"`
	LineItems         []lineItem `json:"line_items"`
}

type lineItem struct {
	ProductID string `json:"product_id"`
}

type invoiceObject struct {
	Customer      string     `json:"customer"`
	Subscription  string     `json:"subscription"`
	BillingReason string     `json:"billing_reason"`
	Lines         []lineItem `json:"lines"`
}

type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// HandleWebhook verifies and dispatches one provider delivery. The signature
// is checked against the raw payload before anything is parsed; any handler
// failure is wrapped into ErrReconciliationFailed so the provider retries.
func (s *PaymentService) HandleWebhook(payload []byte, signatureHeader string) error {
	if err := s.verifySignature(payload, signatureHeader); err != nil {
		return err
	}

	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return fmt.Errorf("%w: missing event id or type", ErrInvalidPayload)
	}

	// Drop redeliveries of events we already applied.
	var processed int64
	s.db.Model(&models.WebhookEventLog{}).
		Where("event_id = ? AND status = ?", event.ID, models.WebhookStatusProcessed).
		Count(&processed)
	if processed > 0 {
		log.Printf("[WEBHOOK] Event %s already processed, skipping", event.ID)
		return nil
	}

	var err error
	switch event.Type {
	case EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(event.Data.Object)
	case EventInvoicePaid:
		err = s.handleInvoicePaid(event.Data.Object)
	case EventInvoiceFailed:
		err = s.handleInvoiceFailed(event.Data.Object)
	case EventSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(event.Data.Object)
	default:
		log.Printf("[WEBHOOK] Ignoring event %s of type %s", event.ID, event.Type)
		s.logEvent(&event, payload, models.WebhookStatusSkipped, "")
		return nil
	}

	if err != nil {
		s.logEvent(&event, payload, models.WebhookStatusFailed, err.Error())
		return fmt.Errorf("%w: %s: %v", ErrReconciliationFailed, event.Type, err)
	}

	s.logEvent(&event, payload, models.WebhookStatusProcessed, "")
	return nil
}

// verifySignature checks the `t=<unix>,v1=<hex hmac>` header against an
// HMAC-SHA256 of "<t>.<payload>" keyed with the webhook secret.
func (s *PaymentService) verifySignature(payload []byte, header string) error {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *PaymentService) logEvent(event *providerEvent, payload []byte, status, errMsg string) {
	entry := models.WebhookEventLog{
		EventID:   event.ID,
		EventType: event.Type,
		Status:    status,
		Error:     errMsg,
		Payload:   datatypes.JSON(payload),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("[WEBHOOK] Failed to log event %s: %v", event.ID, err)
	}
}

// handleCheckoutCompleted applies a finished checkout: the PRO plan product
// updates the user's plan, any other product is a course purchase followed by
// an enrollment. The purchase is written first so a crash between the two
// steps leaves a re-enterable state.
func (s *PaymentService) handleCheckoutCompleted(object json.RawMessage) error {
	var session checkoutSession
	if err := json.Unmarshal(object, &session); err != nil {
		return fmt.Errorf("parsing checkout session: %v", err)
	}
	if len(session.LineItems) == 0 {
		return fmt.Errorf("checkout session has no line items")
	}

	user, err := s.resolveCustomer(session.Customer, session.ClientReferenceID)
	if err != nil {
		return err
	}

	productID := session.LineItems[0].ProductID
	var subscriptionCourseID uint

	if s.isPlanProduct(productID) {
		user.Plan = models.PlanPro
		if session.CustomerEmail != "" {
			user.PaymentEmail = session.CustomerEmail
		}
		if err := s.db.Save(user).Error; err != nil {
			return fmt.Errorf("updating plan of user %d: %v", user.ID, err)
		}
	} else {
		courseID, err := parseCourseProduct(productID)
		if err != nil {
			return err
		}
		subscriptionCourseID = courseID

		var existing int64
		s.db.Model(&models.Purchase{}).
			Where("user_id = ? AND course_id = ?", user.ID, courseID).
			Count(&existing)
		if existing == 0 {
			if err := s.db.Create(&models.Purchase{UserID: user.ID, CourseID: courseID}).Error; err != nil {
				return fmt.Errorf("recording purchase: %v", err)
			}
		}

		// Enroll only once the purchase is on record.
		if _, err := s.enrollments.Enroll(user.ID, courseID, 0, false); err != nil {
			return fmt.Errorf("enrolling user %d on course %d: %v", user.ID, courseID, err)
		}
	}

	if session.Subscription != "" {
		if err := s.upsertSubscription(session.Subscription, user.ID, subscriptionCourseID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PaymentService) handleInvoicePaid(object json.RawMessage) error {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		return fmt.Errorf("parsing invoice: %v", err)
	}

	user, err := s.resolveCustomer(invoice.Customer, "")
	if err != nil {
		return err
	}

	record, err := s.findOrCreateSubscription(&invoice, user.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	if invoice.BillingReason == billingReasonCreate {
		// The enrollment already happened at checkout; just seed the counter.
		record.TotalPaidCount = 1
		record.LastPaidAt = &now
		if err := s.db.Save(record).Error; err != nil {
			return fmt.Errorf("updating subscription record %s: %v", record.SubscriptionID, err)
		}
		s.notifyPaymentReceived(user, record.TotalPaidCount)
		return nil
	}

	// Renewal: re-apply fulfillment so plan/purchase state stays current even
	// if an earlier event was missed.
	if err := s.fulfillOrder(user, record, true); err != nil {
		return err
	}

	record.TotalPaidCount++
	record.LastPaidAt = &now
	record.ReminderSent = false
	if err := s.db.Save(record).Error; err != nil {
		return fmt.Errorf("updating subscription record %s: %v", record.SubscriptionID, err)
	}

	s.notifyPaymentReceived(user, record.TotalPaidCount)

	if record.CourseID != 0 && record.TotalPaidCount >= installmentLimit && !record.CancelledAfterInstallments {
		var course courseModels.Course
		if err := s.db.Where("id = ?", record.CourseID).First(&course).Error; err != nil {
			return fmt.Errorf("course %d: %w", record.CourseID, ErrNotFound)
		}
		if course.IsMentored {
			if err := s.billing.CancelSubscription(record.SubscriptionID); err != nil {
				return fmt.Errorf("cancelling subscription %s: %v", record.SubscriptionID, err)
			}
			// The eventual customer.subscription.deleted for this
			// subscription must not suspend anything.
			record.CancelledAfterInstallments = true
			if err := s.db.Save(record).Error; err != nil {
				return fmt.Errorf("flagging subscription record %s: %v", record.SubscriptionID, err)
			}
		}
	}
	return nil
}

func (s *PaymentService) handleInvoiceFailed(object json.RawMessage) error {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		return fmt.Errorf("parsing invoice: %v", err)
	}

	user, err := s.resolveCustomer(invoice.Customer, "")
	if err != nil {
		return err
	}

	if invoice.BillingReason == billingReasonCreate {
		s.notifyPaymentFailed(user)
		return nil
	}

	record, err := s.findOrCreateSubscription(&invoice, user.ID)
	if err != nil {
		return err
	}

	if err := s.fulfillOrder(user, record, false); err != nil {
		return err
	}

	s.notifyPaymentFailed(user)
	return nil
}

func (s *PaymentService) handleSubscriptionDeleted(object json.RawMessage) error {
	var subscription subscriptionObject
	if err := json.Unmarshal(object, &subscription); err != nil {
		return fmt.Errorf("parsing subscription: %v", err)
	}

	var record models.SubscriptionRecord
	err := s.db.Where("subscription_id = ?", subscription.ID).First(&record).Error
	if err != nil {
		log.Printf("[WEBHOOK] Unknown subscription %s deleted, nothing to do", subscription.ID)
		return nil
	}

	if record.CancelledAfterInstallments {
		// Billing was stopped deliberately after the final installment; the
		// enrollment stays untouched.
		log.Printf("[WEBHOOK] Subscription %s ended after full installment payment, keeping access", subscription.ID)
		return nil
	}

	var user models.User
	if err := s.db.Where("id = ? AND is_deleted = ?", record.UserID, false).First(&user).Error; err != nil {
		return fmt.Errorf("user %d: %w", record.UserID, ErrNotFound)
	}

	user.Plan = models.PlanBase
	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("demoting user %d: %v", user.ID, err)
	}
	return s.enrollments.SuspendAll(user.ID, false)
}

// fulfillOrder re-applies (success) or revokes (failure) whatever the
// subscription pays for: the PRO plan itself, or a single mentored course.
func (s *PaymentService) fulfillOrder(user *models.User, record *models.SubscriptionRecord, success bool) error {
	if record.CourseID == 0 {
		if success {
			if user.Plan != models.PlanPro {
				user.Plan = models.PlanPro
				if err := s.db.Save(user).Error; err != nil {
					return fmt.Errorf("restoring plan of user %d: %v", user.ID, err)
				}
			}
			return nil
		}
		user.Plan = models.PlanBase
		if err := s.db.Save(user).Error; err != nil {
			return fmt.Errorf("demoting user %d: %v", user.ID, err)
		}
		return s.enrollments.SuspendAll(user.ID, false)
	}

	if success {
		var existing int64
		s.db.Model(&models.Purchase{}).
			Where("user_id = ? AND course_id = ?", user.ID, record.CourseID).
			Count(&existing)
		if existing == 0 {
			if err := s.db.Create(&models.Purchase{UserID: user.ID, CourseID: record.CourseID}).Error; err != nil {
				return fmt.Errorf("recording purchase: %v", err)
			}
		}
		if _, err := s.enrollments.Enroll(user.ID, record.CourseID, 0, false); err != nil {
			return fmt.Errorf("re-enrolling user %d on course %d: %v", user.ID, record.CourseID, err)
		}
		return nil
	}

	_, err := s.enrollments.Suspend(user.ID, record.CourseID)
	if err != nil && !errors.Is(err, ErrForbidden) {
		return err
	}
	// Already suspended is fine: the provider may replay the failure.
	return nil
}

// resolveCustomer maps a provider customer id onto a user. On first contact
// the checkout's client reference (our user id) bootstraps the mapping.
func (s *PaymentService) resolveCustomer(customerID, clientReference string) (*models.User, error) {
	var user models.User
	if customerID != "" {
		if err := s.db.Where("payment_customer_id = ? AND is_deleted = ?", customerID, false).
			First(&user).Error; err == nil {
			return &user, nil
		}
	}

	if clientReference != "" {
		userID, err := strconv.ParseUint(clientReference, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad client reference %q: %w", clientReference, ErrInvalidPayload)
		}
		if err := s.db.Where("id = ? AND is_deleted = ?", uint(userID), false).First(&user).Error; err != nil {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		if customerID != "" && user.PaymentCustomerID != customerID {
			user.PaymentCustomerID = customerID
			if err := s.db.Save(&user).Error; err != nil {
				return nil, fmt.Errorf("storing customer id on user %d: %v", user.ID, err)
			}
		}
		return &user, nil
	}

	return nil, fmt.Errorf("customer %q: %w", customerID, ErrNotFound)
}

func (s *PaymentService) findOrCreateSubscription(invoice *invoiceObject, userID uint) (*models.SubscriptionRecord, error) {
	if invoice.Subscription == "" {
		return nil, fmt.Errorf("invoice without subscription: %w", ErrInvalidPayload)
	}

	var record models.SubscriptionRecord
	err := s.db.Where("subscription_id = ?", invoice.Subscription).First(&record).Error
	if err == nil {
		return &record, nil
	}

	// Checkout event may have been lost or delivered after the invoice:
	// rebuild the record from the invoice lines.
	var courseID uint
	if len(invoice.Lines) > 0 && !s.isPlanProduct(invoice.Lines[0].ProductID) {
		courseID, err = parseCourseProduct(invoice.Lines[0].ProductID)
		if err != nil {
			return nil, err
		}
	}

	record = models.SubscriptionRecord{
		SubscriptionID: invoice.Subscription,
		UserID:         userID,
		CourseID:       courseID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("creating subscription record %s: %v", invoice.Subscription, err)
	}
	return &record, nil
}

func (s *PaymentService) upsertSubscription(subscriptionID string, userID, courseID uint) error {
	var record models.SubscriptionRecord
	err := s.db.Where("subscription_id = ?", subscriptionID).First(&record).Error
	if err == nil {
		return nil
	}
	record = models.SubscriptionRecord{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		CourseID:       courseID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("creating subscription record %s: %v", subscriptionID, err)
	}
	return nil
}

func (s *PaymentService) isPlanProduct(productID string) bool {
	return productID == s.planProduct
}

func (s *PaymentService) notifyPaymentReceived(user *models.User, paidCount int) {
	if err := s.mailer.SendPaymentReceived(user.Email, user.FullName(), paidCount); err != nil {
		log.Printf("[WEBHOOK] Failed to send payment notification to %s: %v", user.Email, err)
	}
}

func (s *PaymentService) notifyPaymentFailed(user *models.User) {
	if err := s.mailer.SendPaymentFailed(user.Email, user.FullName()); err != nil {
		log.Printf("[WEBHOOK] Failed to send payment failure notification to %s: %v", user.Email, err)
	}
}

// parseCourseProduct extracts the course id from a product reference. Course
// products are keyed by the numeric course id, optionally prefixed.
func parseCourseProduct(productID string) (uint, error) {
	raw := strings.TrimPrefix(productID, "course_")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("product %q does not reference a course: %w", productID, ErrInvalidPayload)
	}
	return uint(id), nil
}
