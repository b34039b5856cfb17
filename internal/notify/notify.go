// Package notify delivers best-effort completion notifications. Delivery
// failures are logged and never affect campaign state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prospectgrid/prospectgrid/internal/store/model"
)

type Notifier interface {
	CampaignCompleted(ctx context.Context, campaign *model.Campaign) error
}

// LogNotifier is the default when no webhook is configured.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) CampaignCompleted(_ context.Context, campaign *model.Campaign) error {
	zap.S().Named("notify").Infow("campaign completed",
		"campaign_id", campaign.ID,
		"notify_email", campaign.NotifyEmail,
		"succeeded", campaign.SucceededCount,
		"failed", campaign.FailedCount,
	)
	return nil
}

// WebhookNotifier posts a completion payload to a configured endpoint. The
// receiving side owns email delivery.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type completionPayload struct {
	CampaignID  string  `json:"campaign_id"`
	NotifyEmail string  `json:"notify_email,omitempty"`
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Progress    float64 `json:"progress_percent"`
}

func (n *WebhookNotifier) CampaignCompleted(ctx context.Context, campaign *model.Campaign) error {
	payload, err := json.Marshal(completionPayload{
		CampaignID:  campaign.ID.String(),
		NotifyEmail: campaign.NotifyEmail,
		Total:       campaign.TotalProperties,
		Succeeded:   campaign.SucceededCount,
		Failed:      campaign.FailedCount,
		Progress:    campaign.ProgressPercent,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// New picks the webhook notifier when a URL is configured, the log notifier
// otherwise.
func New(webhookURL string) Notifier {
	if webhookURL != "" {
		return NewWebhookNotifier(webhookURL)
	}
	return LogNotifier{}
}
