package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var links []string
	for _, it := range n.listed() {
		links = append(links, fmt.Sprintf("• [%s](%s) [%s, %d]", it.Title, it.URL, it.Platform, it.Score))
	}

	embed := map[string]any{
		"title":       headline(n),
		"description": fmt.Sprintf("**Kept:** %d | **Top score:** %d\n\n%s", len(n.Items), n.TopScore(), strings.Join(links, "\n")),
		"color":       0x2E86AB,
		"timestamp":   n.SentAt.UTC().Format(time.RFC3339),
	}

	body, err := marshal("discord", map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return err
	}
	return postJSON(ctx, d.client, d.webhookURL, "discord webhook", body, nil)
}
