package services

// Mailer sends transactional notifications. Every call is best effort: callers
// log failures and continue, a broken mail pipeline must never block an
// enrollment or billing transition.
type Mailer interface {
	SendEnrollmentConfirmation(email, name, courseTitle string) error
	SendEnrollmentSuspended(email, name, courseTitle string) error
	SendPaymentReceived(email, name string, paidCount int) error
	SendPaymentFailed(email, name string) error
	SendCertificateIssued(email, name, courseTitle, certificateUUID string) error
	SendInstallmentReminder(email, name string, paidCount int) error
}
