package paymentRoutes

import (
	controllers "learnhub/controllers/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up the payment provider webhook endpoint. The
// webhook authenticates with its signature header, not a JWT.
func SetupPaymentRoutes(app *fiber.App) {
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook)
}
