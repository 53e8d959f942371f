package main

import (
	"log"

	"learnhub/config"
	courseControllers "learnhub/controllers/course"
	paymentControllers "learnhub/controllers/payment"
	"learnhub/database"
	authRoutes "learnhub/routers/authRoutes"
	courseRoutes "learnhub/routers/courseRoutes"
	paymentRoutes "learnhub/routers/paymentRoutes"
	"learnhub/services"
	"learnhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	mailer := utils.NewEmailService()
	sandbox := services.NewSandboxDispatcher(utils.NewSandboxClient())

	var storage services.ObjectStorage
	if config.AppConfig.SpacesAccessKey != "" {
		spaces, err := utils.NewSpacesStorage()
		if err != nil {
			log.Fatalf("Failed to set up certificate storage: %v", err)
		}
		storage = spaces
	} else {
		storage = utils.NewLocalStorage(config.AppConfig.CertificateDir)
	}

	db := database.Database.Db
	enrollments := services.NewEnrollmentService(db, sandbox, mailer)
	payments := services.NewPaymentService(db, enrollments, utils.NewBillingAPIClient(), mailer,
		config.AppConfig.WebhookSecret, config.AppConfig.ProPlanProductID)
	certificates := services.NewCertificateService(db, storage, utils.NewHTMLCertificateRenderer(), mailer)

	courseControllers.SetupServices(enrollments, certificates)
	paymentControllers.SetupServices(payments)

	utils.InitializeBillingScheduler(mailer)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization,X-Webhook-Signature",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve static files from the public folder
	app.Static("/", "./public")

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	paymentRoutes.SetupPaymentRoutes(app)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
