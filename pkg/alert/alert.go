// Package alert delivers notifications about newly kept previews to chat
// and webhook destinations.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxListed caps how many previews a chat message links to.
const maxListed = 5

// Item is one kept preview in a notification.
type Item struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Author   string `json:"author,omitempty"`
	Score    int    `json:"score"`
}

// Notification announces the previews kept for one seed.
type Notification struct {
	SeedID    string    `json:"seed_id"`
	SeedTitle string    `json:"seed_title"`
	Items     []Item    `json:"items"`
	SentAt    time.Time `json:"sent_at"`
}

// TopScore returns the highest item score, or 0 without items.
func (n *Notification) TopScore() int {
	top := 0
	for _, it := range n.Items {
		top = max(top, it.Score)
	}
	return top
}

func (n *Notification) listed() []Item {
	return n.Items[:min(maxListed, len(n.Items))]
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Observer is told the outcome of every delivery attempt.
type Observer func(notifier string, err error)

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
	observe   Observer
}

// NewManager creates a new alert manager. observe may be nil.
func NewManager(notifiers []Notifier, observe Observer) *Manager {
	return &Manager{notifiers: notifiers, observe: observe}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers and joins
// their errors.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	var errs []error
	for _, notifier := range m.notifiers {
		err := notifier.Send(ctx, n)
		if m.observe != nil {
			m.observe(notifier.Name(), err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// postJSON sends body to url and treats any 2xx response as delivered.
func postJSON(ctx context.Context, client *http.Client, url, what string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", what, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d", what, resp.StatusCode)
	}
	return nil
}

func marshal(what string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", what, err)
	}
	return body, nil
}

func headline(n *Notification) string {
	title := n.SeedTitle
	if title == "" {
		title = n.SeedID
	}
	return fmt.Sprintf("New matches for %s", title)
}
