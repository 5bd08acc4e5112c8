package emit

import (
	"context"
	"fmt"
	"sync"

	"github.com/LineageOS/android-tools-extract-utils/config"
	"github.com/go-resty/resty/v2"
)

// RunSummary is the outbound run-summary payload posted to a recipe's
// configured webhook after an extraction completes, grounded on the
// shape of notarize/api's submission responses.
type RunSummary struct {
	Device         string   `json:"device"`
	RecordCount    int      `json:"record_count"`
	FixedUpBlobs   []string `json:"fixed_up_blobs,omitempty"`
	HashMismatches []string `json:"hash_mismatches,omitempty"`
	KangMode       bool     `json:"kang_mode"`
	Success        bool     `json:"success"`
}

// WebhookClient posts a RunSummary to a recipe-configured webhook,
// grounded on notarize/api/client.go's shared *resty.Client-plus-
// bearer-auth-callback pattern, adapted here for a single-endpoint POST
// instead of that package's multi-endpoint App Store Connect surface.
type WebhookClient struct {
	Config *config.WebhookConfig
	Auth   *config.WebhookAuth

	once   sync.Once
	client *resty.Client
}

func (c *WebhookClient) httpClient() *resty.Client {
	c.once.Do(func() {
		c.client = resty.New()
	})
	return c.client
}

// Post sends the summary to Config.URL with an ES256 bearer token minted
// by Auth, returning an error on any non-2xx response.
func (c *WebhookClient) Post(ctx context.Context, summary *RunSummary) error {
	if c.Config == nil || c.Config.URL == "" {
		return nil
	}

	token, err := c.Auth.BearerToken()
	if err != nil {
		return fmt.Errorf("mint webhook bearer token: %w", err)
	}

	resp, err := c.httpClient().R().
		SetContext(ctx).
		SetAuthScheme("Bearer").
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(summary).
		Post(c.Config.URL)
	if err != nil {
		return fmt.Errorf("post run summary: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
