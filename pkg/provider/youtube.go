package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elonfeng/seedradar/pkg/preview"
)

const youtubeAPI = "https://www.googleapis.com/youtube/v3"

// YouTubeConfig configures the YouTube Data API client.
type YouTubeConfig struct {
	APIKey     string
	MaxResults int
	// PublishedWithin restricts results to recent uploads when positive.
	PublishedWithin time.Duration
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
}

// YouTube searches videos and enriches them with statistics and duration.
type YouTube struct {
	client *http.Client
	cfg    YouTubeConfig
	now    func() time.Time
}

// NewYouTube creates a new YouTube provider.
func NewYouTube(cfg YouTubeConfig) *YouTube {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 25
	}
	cfg.MaxResults = min(cfg.MaxResults, 50)
	if cfg.BaseURL == "" {
		cfg.BaseURL = youtubeAPI
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &YouTube{client: newHTTPClient(), cfg: cfg, now: time.Now}
}

func (y *YouTube) Platform() string { return string(preview.PlatformYouTube) }

// Search runs search.list for query, then one videos.list call for the hits.
// When enrichment fails the search snippets are still returned.
func (y *YouTube) Search(ctx context.Context, query string) ([]preview.RawRecord, error) {
	if y.cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", strconv.Itoa(y.cfg.MaxResults))
	params.Set("key", y.cfg.APIKey)
	if y.cfg.PublishedWithin > 0 {
		params.Set("publishedAfter", y.now().Add(-y.cfg.PublishedWithin).UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube search request: %w", err)
	}
	var result ytSearchResult
	if err := doJSON(y.client, req, "youtube search", &result); err != nil {
		return nil, err
	}

	var ids []string
	snippets := make(map[string]map[string]any)
	for _, item := range result.Items {
		id := item.ID.VideoID
		if id == "" || snippets[id] != nil {
			continue
		}
		ids = append(ids, id)
		snippets[id] = item.Snippet
	}
	if len(ids) == 0 {
		return nil, nil
	}

	videos, _ := y.videos(ctx, ids)

	records := make([]preview.RawRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, mergeVideo(id, snippets[id], videos[id]))
	}
	return records, nil
}

func (y *YouTube) videos(ctx context.Context, ids []string) (map[string]ytVideo, error) {
	params := url.Values{}
	params.Set("part", "statistics,contentDetails,snippet")
	params.Set("id", strings.Join(ids, ","))
	params.Set("maxResults", strconv.Itoa(len(ids)))
	params.Set("key", y.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cfg.BaseURL+"/videos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube videos request: %w", err)
	}
	var result ytVideoResult
	if err := doJSON(y.client, req, "youtube videos", &result); err != nil {
		return nil, err
	}

	out := make(map[string]ytVideo, len(result.Items))
	for _, v := range result.Items {
		out[v.ID] = v
	}
	return out, nil
}

// mergeVideo builds the flat record shape: top-level snippet fields plus the
// nested snippet, statistics and contentDetails objects.
func mergeVideo(id string, searchSnippet map[string]any, video ytVideo) preview.RawRecord {
	snippet := video.Snippet
	if len(snippet) == 0 {
		snippet = searchSnippet
	}
	if snippet == nil {
		snippet = map[string]any{}
	}
	rec := preview.RawRecord{
		"id":             id,
		"videoId":        id,
		"title":          snippet["title"],
		"description":    snippet["description"],
		"channelTitle":   snippet["channelTitle"],
		"publishedAt":    snippet["publishedAt"],
		"snippet":        snippet,
		"statistics":     orEmpty(video.Statistics),
		"contentDetails": orEmpty(video.ContentDetails),
	}
	if d, ok := video.ContentDetails["duration"].(string); ok {
		if secs, ok := preview.ParseISODuration(d); ok {
			rec["durationSec"] = secs
		}
	}
	return rec
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

type ytSearchResult struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet map[string]any `json:"snippet"`
	} `json:"items"`
}

type ytVideo struct {
	ID             string         `json:"id"`
	Snippet        map[string]any `json:"snippet"`
	Statistics     map[string]any `json:"statistics"`
	ContentDetails map[string]any `json:"contentDetails"`
}

type ytVideoResult struct {
	Items []ytVideo `json:"items"`
}
