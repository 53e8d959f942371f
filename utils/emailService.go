package utils

import (
	"fmt"
	"log"

	"learnhub/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends transactional mail through SendGrid. It satisfies the
// services.Mailer interface.
type EmailService struct {
	client *sendgrid.Client
}

func NewEmailService() *EmailService {
	return &EmailService{client: sendgrid.NewSendClient(config.AppConfig.SendGridKey)}
}

func (e *EmailService) send(email, name, subject, title, bodyContent string) error {
	from := mail.NewEmail("LearnHub", config.AppConfig.EmailSender)
	to := mail.NewEmail(name, email)
	html := getEmailTemplate(title, bodyContent)
	message := mail.NewSingleEmail(from, subject, to, title, html)

	resp, err := e.client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	log.Printf("[EMAIL] Sent %q to %s", subject, email)
	return nil
}

// HTML wrapper shared by all notifications
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1A2238; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1A2238; line-height: 1.6; }
			.content h2 { color: #1A2238; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #9DAAF2; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LEARNHUB</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 LearnHub. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

func (e *EmailService) SendEnrollmentConfirmation(email, name, courseTitle string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You are now enrolled in:</p>
		<div class="info-box"><strong>%s</strong></div>
		<p>All course content is available right away. Complete every lesson to earn your certificate.</p>
	`, name, courseTitle)
	return e.send(email, name, "Course Enrollment Confirmation", "Enrollment Successful", body)
}

func (e *EmailService) SendEnrollmentSuspended(email, name, courseTitle string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your access to the following course has been suspended:</p>
		<div class="info-box"><strong>%s</strong></div>
		<p>Your progress is kept. Re-enrolling restores everything exactly where you left off.</p>
	`, name, courseTitle)
	return e.send(email, name, "Course Access Suspended", "Access Suspended", body)
}

func (e *EmailService) SendPaymentReceived(email, name string, paidCount int) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received your payment. Thank you!</p>
		<div class="info-box">Payments received so far: <strong>%d</strong></div>
	`, name, paidCount)
	return e.send(email, name, "Payment Received", "Payment Received", body)
}

func (e *EmailService) SendPaymentFailed(email, name string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your last payment could not be processed. Please update your payment
		method to keep access to your courses.</p>
	`, name)
	return e.send(email, name, "Payment Failed", "Payment Failed", body)
}

func (e *EmailService) SendCertificateIssued(email, name, courseTitle, certificateUUID string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Congratulations on completing:</p>
		<div class="info-box"><strong>%s</strong></div>
		<p>Your certificate verification code:</p>
		<div class="info-box"><strong>%s</strong></div>
		<p>Anyone can confirm your achievement with this code and your name.</p>
	`, name, courseTitle, certificateUUID)
	return e.send(email, name, "Your Course Certificate", "Certificate of Completion", body)
}

func (e *EmailService) SendInstallmentReminder(email, name string, paidCount int) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>A friendly reminder that your next course installment is due soon.</p>
		<div class="info-box">Installments paid so far: <strong>%d of 3</strong></div>
	`, name, paidCount)
	return e.send(email, name, "Installment Payment Reminder", "Payment Reminder", body)
}
