package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	EmailSender string
	SendGridKey string

	WebhookSecret    string // Payment provider webhook signing secret
	BillingApiURL    string // Payment provider REST base URL
	BillingApiKey    string
	ProPlanProductID string // Product id of the PRO subscription plan

	SandboxApiURL    string // Sandbox provisioner base URL
	SandboxApiKey    string
	SandboxSecretKey string

	CertificateDir string // Local fallback directory for certificate artifacts

	SpacesAccessKey string // S3-compatible object storage for certificates
	SpacesSecretKey string
	SpacesBucket    string
	SpacesRegion    string
	SpacesEndpoint  string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", "no-reply@learnhub.io"),
		SendGridKey: getEnv("SENDGRID_API_KEY", ""),

		WebhookSecret:    getEnv("PAYMENT_WEBHOOK_SECRET", "whsec_test"),
		BillingApiURL:    getEnv("BILLING_API_URL", "https://api.billing.example.com/v1"),
		BillingApiKey:    getEnv("BILLING_API_KEY", ""),
		ProPlanProductID: getEnv("PRO_PLAN_PRODUCT_ID", "plan_pro"),

		SandboxApiURL:    getEnv("SANDBOX_API_URL", "https://sandbox.learnhub.io/api/v1"),
		SandboxApiKey:    getEnv("SANDBOX_API_KEY", ""),
		SandboxSecretKey: getEnv("SANDBOX_SECRET_KEY", ""),

		CertificateDir: getEnv("CERTIFICATE_DIR", "./public/certificates"),

		SpacesAccessKey: getEnv("SPACES_ACCESS_KEY", ""),
		SpacesSecretKey: getEnv("SPACES_SECRET_KEY", ""),
		SpacesBucket:    getEnv("SPACES_BUCKET", "learnhub-certificates"),
		SpacesRegion:    getEnv("SPACES_REGION", "fra1"),
		SpacesEndpoint:  getEnv("SPACES_ENDPOINT", "fra1.digitaloceanspaces.com"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.WebhookSecret == "whsec_test" {
		log.Println("Warning: Using default PAYMENT_WEBHOOK_SECRET. Update it in your environment.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
