package utils

import (
	"fmt"
	"time"

	"learnhub/config"

	"github.com/go-resty/resty/v2"
)

// BillingAPIClient calls back into the payment provider's REST API. It
// satisfies the services.BillingClient interface.
type BillingAPIClient struct {
	http *resty.Client
}

func NewBillingAPIClient() *BillingAPIClient {
	client := resty.New().
		SetBaseURL(config.AppConfig.BillingApiURL).
		SetAuthToken(config.AppConfig.BillingApiKey).
		SetTimeout(30 * time.Second).
		SetRetryCount(2)
	return &BillingAPIClient{http: client}
}

// CancelSubscription stops future billing of the subscription at the end of
// the current period. Used once all installments of a course are paid.
func (c *BillingAPIClient) CancelSubscription(subscriptionID string) error {
	resp, err := c.http.R().
		SetBody(map[string]interface{}{"cancel_at_period_end": true}).
		Post(fmt.Sprintf("/subscriptions/%s/cancel", subscriptionID))
	if err != nil {
		return fmt.Errorf("cancel subscription request: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cancel subscription returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
