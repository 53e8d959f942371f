package controllers

import (
	"errors"
	"log"

	"learnhub/middleware"
	"learnhub/services"

	"github.com/gofiber/fiber/v2"
)

var paymentService *services.PaymentService

// SetupServices injects the payment service used by the webhook controller
func SetupServices(payments *services.PaymentService) {
	paymentService = payments
}

// HandlePaymentWebhook is the payment provider's delivery endpoint. Integrity
// failures are rejected with 400; anything that went wrong during
// reconciliation comes back as a generic 500 so the provider retries.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("X-Webhook-Signature")

	if err := paymentService.HandleWebhook(payload, signature); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature), errors.Is(err, services.ErrInvalidPayload):
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid webhook request!", nil)
		default:
			log.Printf("[WEBHOOK] Processing failed: %v", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Webhook processing failed!", nil)
		}
	}

	return c.Status(fiber.StatusOK).SendString("OK")
}
