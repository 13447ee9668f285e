package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/pkg/preview"
)

func TestKeywordsFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{`from:drsmith "rtms vs tdcs"`, []string{"rtms vs tdcs"}},
		{`title:"deep sleep" OR memory`, []string{"deep sleep", "memory"}},
		{"#sleep #ai science", []string{"sleep", "science"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeywordsFromQuery(tt.query), tt.query)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"Deep Sleep", "memory"}, []string{"sponsored"})

	assert.True(t, f.Matches("How DEEP SLEEP works"))
	assert.True(t, f.Matches("memory consolidation"))
	assert.False(t, f.Matches("deep sleep, sponsored post"))
	assert.False(t, f.Matches("gardening"))

	assert.True(t, NewFilter(nil, nil).Matches("anything"))
}

func TestYouTube_SearchMergesVideoDetails(t *testing.T) {
	var searchQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		switch r.URL.Path {
		case "/search":
			searchQuery = r.URL.Query().Get("q")
			_, _ = w.Write([]byte(`{"items":[
				{"id":{"videoId":"abc"},"snippet":{"title":"search title","channelTitle":"Chan"}},
				{"id":{"videoId":"def"},"snippet":{"title":"only in search"}},
				{"id":{"kind":"youtube#channel"}}
			]}`))
		case "/videos":
			assert.Equal(t, "abc,def", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"items":[{
				"id":"abc",
				"snippet":{"title":"Deep sleep explainer","description":"#sleep facts","channelTitle":"Chan","publishedAt":"2025-10-30T17:02:55Z"},
				"statistics":{"viewCount":"1200","likeCount":"30","commentCount":"4"},
				"contentDetails":{"duration":"PT1M5S"}
			}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	yt := NewYouTube(YouTubeConfig{APIKey: "k", BaseURL: srv.URL})
	records, err := yt.Search(context.Background(), `"deep sleep"`)
	require.NoError(t, err)
	assert.Equal(t, `"deep sleep"`, searchQuery)
	require.Len(t, records, 2)

	p, err := preview.Normalize(yt.Platform(), records[0])
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", *p.URL)
	assert.Equal(t, "Deep sleep explainer", *p.Title)
	assert.Equal(t, []string{"sleep"}, p.Hashtags)
	assert.Equal(t, int64(1200), *p.Engagement.Views)
	assert.Equal(t, int64(65), *p.Media.DurationSec)

	fallback, err := preview.Normalize(yt.Platform(), records[1])
	require.NoError(t, err)
	assert.Equal(t, "only in search", *fallback.Title)
	assert.Nil(t, fallback.Engagement.Views)
}

func TestYouTube_RequiresAPIKey(t *testing.T) {
	_, err := NewYouTube(YouTubeConfig{}).Search(context.Background(), "q")
	assert.Error(t, err)
}

func TestYouTube_SearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewYouTube(YouTubeConfig{APIKey: "k", BaseURL: srv.URL}).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

const redditListingJSON = `{"data":{"children":[
	{"kind":"t3","data":{"title":"tDCS results","permalink":"/r/x/comments/1/","score":12,"num_comments":3,"created_utc":1761843775}},
	{"kind":"t3","data":{"title":"Rules","stickied":true}}
]}}`

func TestReddit_PublicSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "tdcs", r.URL.Query().Get("q"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(redditListingJSON))
	}))
	defer srv.Close()

	rd := NewReddit(RedditConfig{PublicURL: srv.URL})
	records, err := rd.Search(context.Background(), "tdcs")
	require.NoError(t, err)
	require.Len(t, records, 1)

	p, err := preview.Normalize(rd.Platform(), records[0])
	require.NoError(t, err)
	assert.Equal(t, "https://www.reddit.com/r/x/comments/1/", *p.URL)
	assert.Equal(t, "2025-10-30T17:02:55Z", *p.Date)
	assert.Equal(t, int64(12), *p.Engagement.Likes)
}

func TestReddit_OAuthSearchCachesToken(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			tokenCalls++
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "id", user)
			assert.Equal(t, "secret", pass)
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		case "/search":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(redditListingJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rd := NewReddit(RedditConfig{ClientID: "id", ClientSecret: "secret", PublicURL: srv.URL, OAuthURL: srv.URL})
	for range 2 {
		records, err := rd.Search(context.Background(), "tdcs")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestReddit_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rd := NewReddit(RedditConfig{ClientID: "id", ClientSecret: "bad", PublicURL: srv.URL, OAuthURL: srv.URL})
	_, err := rd.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit auth")
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Science</title>
<item><title>Deep sleep and memory</title><link>https://example.com/a</link><description>New #sleep study</description>
<author>desk@example.com (Science Desk)</author><pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate><guid>a</guid></item>
<item><title>Stock market today</title><link>https://example.com/b</link><description>Earnings</description><guid>b</guid></item>
<item><title>Old deep sleep piece</title><link>https://example.com/c</link><pubDate>Mon, 02 Jan 2000 15:04:05 -0700</pubDate><guid>c</guid></item>
</channel></rss>`

func TestRSS_SearchFiltersByQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	rss := NewRSS([]Feed{{Name: "science", URL: srv.URL}}, nil, 365*24*time.Hour)
	rss.now = func() time.Time { return time.Date(2006, 6, 1, 0, 0, 0, 0, time.UTC) }

	records, err := rss.Search(context.Background(), `"deep sleep"`)
	require.NoError(t, err)
	require.Len(t, records, 1)

	p, err := preview.Normalize(rss.Platform(), records[0])
	require.NoError(t, err)
	assert.Equal(t, preview.Platform("rss"), p.Platform)
	assert.Equal(t, "https://example.com/a", *p.URL)
	assert.Equal(t, "2006-01-02T22:04:05Z", *p.Date)
	assert.Equal(t, []string{"sleep"}, p.Hashtags)
}

func TestRSS_AllFeedsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRSS([]Feed{{Name: "down", URL: srv.URL}}, nil, 0).Search(context.Background(), "x")
	assert.Error(t, err)

	records, err := NewRSS(nil, nil, 0).Search(context.Background(), "x")
	assert.NoError(t, err)
	assert.Empty(t, records)
}
