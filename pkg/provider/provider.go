// Package provider searches content platforms and returns raw records in the
// shapes the preview normalizer understands.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/seedradar/pkg/preview"
)

// DefaultUserAgent identifies seedradar to platform APIs.
const DefaultUserAgent = "seedradar/1.0"

const defaultTimeout = 30 * time.Second

// Provider is the interface every platform client must implement.
type Provider interface {
	Platform() string
	Search(ctx context.Context, query string) ([]preview.RawRecord, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// doJSON sends req and decodes a 200 response body into out.
func doJSON(client *http.Client, req *http.Request, what string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s status %d", what, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
