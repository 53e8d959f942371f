package utils

import (
	"fmt"
	"time"

	"learnhub/config"

	"github.com/go-resty/resty/v2"
)

// SandboxClient talks to the external sandbox provisioner. It satisfies the
// services.SandboxProvisioner interface.
type SandboxClient struct {
	http *resty.Client
}

func NewSandboxClient() *SandboxClient {
	client := resty.New().
		SetBaseURL(config.AppConfig.SandboxApiURL).
		SetHeader("X-Api-Key", config.AppConfig.SandboxApiKey).
		SetHeader("X-Api-Secret", config.AppConfig.SandboxSecretKey).
		SetTimeout(30 * time.Second).
		SetRetryCount(2)
	return &SandboxClient{http: client}
}

// Initialize provisions a sandbox environment for the user.
func (c *SandboxClient) Initialize(userID uint, sandboxType string) error {
	resp, err := c.http.R().
		SetBody(map[string]interface{}{
			"user_id": userID,
			"type":    sandboxType,
		}).
		Post("/environments")
	if err != nil {
		return fmt.Errorf("sandbox initialize request: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sandbox initialize returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Destroy tears the user's sandbox environment down.
func (c *SandboxClient) Destroy(userID uint, sandboxType string) error {
	resp, err := c.http.R().
		SetBody(map[string]interface{}{
			"user_id": userID,
			"type":    sandboxType,
		}).
		Post("/environments/destroy")
	if err != nil {
		return fmt.Errorf("sandbox destroy request: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sandbox destroy returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
