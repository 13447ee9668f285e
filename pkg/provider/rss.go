package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/seedradar/pkg/preview"
)

// PlatformRSS is the platform name RSS previews are stored under.
const PlatformRSS = "rss"

// Feed is a named RSS/Atom feed URL.
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// RSS searches a fixed set of feeds by keyword.
type RSS struct {
	client  *http.Client
	parser  *gofeed.Parser
	feeds   []Feed
	exclude []string
	maxAge  time.Duration
	now     func() time.Time
}

// NewRSS creates a new RSS provider. Items older than maxAge are skipped
// when maxAge is positive.
func NewRSS(feeds []Feed, exclude []string, maxAge time.Duration) *RSS {
	return &RSS{
		client:  newHTTPClient(),
		parser:  gofeed.NewParser(),
		feeds:   feeds,
		exclude: exclude,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (r *RSS) Platform() string { return PlatformRSS }

// Search fetches every feed and returns the items matching the query
// keywords as generic records. A feed that fails is skipped; the call fails
// only when every feed does.
func (r *RSS) Search(ctx context.Context, query string) ([]preview.RawRecord, error) {
	filter := NewFilter(KeywordsFromQuery(query), r.exclude)

	var (
		records []preview.RawRecord
		errs    []error
	)
	for _, feed := range r.feeds {
		items, err := r.searchFeed(ctx, feed, filter)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, items...)
	}
	if len(r.feeds) > 0 && len(errs) == len(r.feeds) {
		return nil, errs[0]
	}
	return records, nil
}

func (r *RSS) searchFeed(ctx context.Context, feed Feed, filter *Filter) ([]preview.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	var records []preview.RawRecord
	for _, entry := range parsed.Items {
		var published *time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed
		}
		if r.maxAge > 0 && published != nil && published.Before(r.now().Add(-r.maxAge)) {
			continue
		}

		if !filter.Matches(entry.Title + " " + entry.Description) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		rec := preview.RawRecord{
			"title":       entry.Title,
			"description": entry.Description,
			"url":         link,
			"guid":        entry.GUID,
			"feed":        feed.Name,
			"categories":  entry.Categories,
		}
		if entry.Author != nil && entry.Author.Name != "" {
			rec["author"] = entry.Author.Name
		}
		if published != nil {
			rec["published"] = published.UTC().Format(time.RFC3339)
		}
		records = append(records, rec)
	}
	return records, nil
}
