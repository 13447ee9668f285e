package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elonfeng/seedradar/pkg/preview"
)

const (
	redditPublicURL = "https://www.reddit.com"
	redditOAuthURL  = "https://oauth.reddit.com"
)

// RedditConfig configures the Reddit search client. Without a client ID and
// secret the public search.json endpoint is used.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Sort         string
	Limit        int
	// PublicURL and OAuthURL override the API hosts, mainly for tests.
	PublicURL string
	OAuthURL  string
}

// Reddit searches posts across all subreddits.
type Reddit struct {
	client      *http.Client
	cfg         RedditConfig
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewReddit creates a new Reddit provider.
func NewReddit(cfg RedditConfig) *Reddit {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Sort == "" {
		cfg.Sort = "relevance"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	cfg.Limit = min(cfg.Limit, 100)
	if cfg.PublicURL == "" {
		cfg.PublicURL = redditPublicURL
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = redditOAuthURL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.OAuthURL = strings.TrimRight(cfg.OAuthURL, "/")
	return &Reddit{client: newHTTPClient(), cfg: cfg}
}

func (r *Reddit) Platform() string { return string(preview.PlatformReddit) }

func (r *Reddit) oauth() bool {
	return r.cfg.ClientID != "" && r.cfg.ClientSecret != ""
}

// Search returns the listing children for query, each still wrapped in its
// kind/data envelope.
func (r *Reddit) Search(ctx context.Context, query string) ([]preview.RawRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", r.cfg.Sort)
	params.Set("limit", strconv.Itoa(r.cfg.Limit))
	params.Set("t", "all")
	params.Set("restrict_sr", "false")

	reqURL := r.cfg.PublicURL + "/search.json?" + params.Encode()
	if r.oauth() {
		if err := r.authenticate(ctx); err != nil {
			return nil, fmt.Errorf("reddit auth: %w", err)
		}
		reqURL = r.cfg.OAuthURL + "/search?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create reddit search request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	if r.oauth() {
		r.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+r.token)
		r.mu.Unlock()
	}

	var listing redditListing
	if err := doJSON(r.client, req, "reddit search", &listing); err != nil {
		return nil, err
	}

	records := make([]preview.RawRecord, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child == nil {
			continue
		}
		if data, ok := child["data"].(map[string]any); ok && data["stickied"] == true {
			continue
		}
		records = append(records, child)
	}
	return records, nil
}

// authenticate fetches an application-only token and caches it until a
// minute before expiry.
func (r *Reddit) authenticate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.cfg.PublicURL+"/api/v1/access_token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := doJSON(r.client, req, "reddit token", &tokenResp); err != nil {
		return err
	}
	if tokenResp.AccessToken == "" {
		return fmt.Errorf("reddit token response missing access_token")
	}

	r.token = tokenResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return nil
}

type redditListing struct {
	Data struct {
		Children []map[string]any `json:"children"`
	} `json:"data"`
}
