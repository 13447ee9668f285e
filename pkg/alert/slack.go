package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": headline(n)},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Kept:* %d | *Top score:* %d", len(n.Items), n.TopScore()),
			},
		},
	}

	if items := n.listed(); len(items) > 0 {
		elements := make([]map[string]any, 0, len(items))
		for _, it := range items {
			elements = append(elements, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("<%s|%s> [%s, %d]", it.URL, it.Title, it.Platform, it.Score),
			})
		}
		blocks = append(blocks, map[string]any{"type": "context", "elements": elements})
	}

	body, err := marshal("slack", map[string]any{"blocks": blocks})
	if err != nil {
		return err
	}
	return postJSON(ctx, s.client, s.webhookURL, "slack webhook", body, nil)
}
