package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type upstream struct {
	srv       *httptest.Server
	hits      atomic.Int32
	lastPath  atomic.Value
	userAgent atomic.Value
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.lastPath.Store(r.URL.Path)
		u.userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) client(opts Options) *Client {
	opts.BaseURL = u.srv.URL
	opts.HTTPClient = u.srv.Client()
	return NewClient(opts)
}

func TestFetch_ReturnsItemsWithDefaults(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[
		{"data":{"url":"https://i.redd.it/cute1.jpg","title":"A cat","author":"alice","score":42,"permalink":"/r/aww/comments/1/a_cat/","subreddit":"aww"}},
		{"data":{"url":"https://i.redd.it/cute2.jpg"}}
	]}}`)

	items, err := up.client(Options{UserAgent: "test-agent"}).Fetch(context.Background(), "aww")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://i.redd.it/cute1.jpg", items[0].URL)
	assert.Equal(t, "A cat", items[0].Title)
	assert.Equal(t, "alice", items[0].Author)
	assert.Equal(t, 42, items[0].Score)
	assert.Equal(t, "https://www.reddit.com/r/aww/comments/1/a_cat/", items[0].Permalink)
	assert.Equal(t, "aww", items[0].Source)

	assert.Equal(t, "Cute post", items[1].Title)
	assert.Equal(t, "Unknown", items[1].Author)
	assert.Equal(t, 0, items[1].Score)
	assert.Equal(t, "aww", items[1].Source)

	assert.Equal(t, int32(1), up.hits.Load())
	assert.Equal(t, "/r/aww/hot.json", up.lastPath.Load())
	assert.Equal(t, "test-agent", up.userAgent.Load())
}

func TestFetch_DefaultUserAgent(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[{"data":{"url":"https://i.redd.it/a.jpg"}}]}}`)

	_, err := up.client(Options{}).Fetch(context.Background(), "aww")
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, up.userAgent.Load())
}

func TestFetch_MediaPriority(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "reddit video wins over url",
			data: `{"url":"https://i.redd.it/image.jpg","media":{"reddit_video":{"fallback_url":"https://v.redd.it/video1.mp4"}}}`,
			want: "https://v.redd.it/video1.mp4",
		},
		{
			name: "secure media video used when media missing",
			data: `{"url":"https://i.redd.it/image.jpg","secure_media":{"reddit_video":{"fallback_url":"https://v.redd.it/secure.mp4"}}}`,
			want: "https://v.redd.it/secure.mp4",
		},
		{
			name: "media beats secure media",
			data: `{"url":"https://i.redd.it/image.jpg","media":{"reddit_video":{"fallback_url":"https://v.redd.it/m.mp4"}},"secure_media":{"reddit_video":{"fallback_url":"https://v.redd.it/s.mp4"}}}`,
			want: "https://v.redd.it/m.mp4",
		},
		{
			name: "non-video media falls through to url",
			data: `{"url":"https://i.imgur.com/x.gif","media":{"oembed":{}}}`,
			want: "https://i.imgur.com/x.gif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, http.StatusOK, `{"data":{"children":[{"data":`+tt.data+`}]}}`)

			items, err := up.client(Options{}).Fetch(context.Background(), "aww")
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.want, items[0].URL)
		})
	}
}

func TestFetch_Filters(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[
		{"is_gallery":true,"data":{"url":"https://i.redd.it/gallery-wrapper.jpg"}},
		{"data":{"url":"https://i.redd.it/gallery-data.jpg","is_gallery":true}},
		{"data":{"url":"https://i.redd.it/nsfw.jpg","over_18":true}},
		{"data":{"url":"https://i.redd.it/removed.jpg","removed_by_category":"moderator"}},
		{"data":{"url":"https://i.redd.it/deleted.jpg","author":"[deleted]"}},
		{"data":{"url":"https://i.redd.it/low.jpg","score":9}},
		{"data":{"url":"","score":500}},
		{"data":{"url":"https://i.redd.it/threshold.jpg","score":10}},
		{"data":{"url":"https://i.redd.it/unscored.jpg"}}
	]}}`)

	items, err := up.client(Options{}).Fetch(context.Background(), "aww")
	require.NoError(t, err)

	var urls []string
	for _, it := range items {
		urls = append(urls, it.URL)
	}
	assert.Equal(t, []string{"https://i.redd.it/threshold.jpg", "https://i.redd.it/unscored.jpg"}, urls)
}

func TestFetch_GalleryAndPlain(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[
		{"is_gallery":true,"data":{"url":"https://i.redd.it/gallery.jpg"}},
		{"data":{"url":"https://i.redd.it/cute.jpg"}}
	]}}`)

	items, err := up.client(Options{}).Fetch(context.Background(), "aww")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://i.redd.it/cute.jpg", items[0].URL)
}

func TestFetch_CustomMinScore(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[
		{"data":{"url":"https://i.redd.it/a.jpg","score":50}},
		{"data":{"url":"https://i.redd.it/b.jpg","score":150}}
	]}}`)

	items, err := up.client(Options{MinScore: 100}).Fetch(context.Background(), "aww")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://i.redd.it/b.jpg", items[0].URL)
}

func TestFetch_Errors(t *testing.T) {
	t.Run("empty listing", func(t *testing.T) {
		up := newUpstream(t, http.StatusOK, `{"data":{"children":[]}}`)
		_, err := up.client(Options{}).Fetch(context.Background(), "aww")
		assert.ErrorIs(t, err, ErrNoPostsFound)
	})

	t.Run("missing data", func(t *testing.T) {
		up := newUpstream(t, http.StatusOK, `{}`)
		_, err := up.client(Options{}).Fetch(context.Background(), "aww")
		assert.ErrorIs(t, err, ErrNoPostsFound)
	})

	t.Run("all filtered", func(t *testing.T) {
		up := newUpstream(t, http.StatusOK, `{"data":{"children":[{"data":{"url":"https://i.redd.it/x.jpg","over_18":true}}]}}`)
		_, err := up.client(Options{}).Fetch(context.Background(), "aww")
		assert.ErrorIs(t, err, ErrNoValidPosts)
	})

	t.Run("non-ok status", func(t *testing.T) {
		up := newUpstream(t, http.StatusServiceUnavailable, `overloaded`)
		_, err := up.client(Options{}).Fetch(context.Background(), "aww")

		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, 503, ue.StatusCode)
		assert.Equal(t, "Service Unavailable", ue.Status)
		assert.Equal(t, "overloaded", ue.Body)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("malformed json", func(t *testing.T) {
		up := newUpstream(t, http.StatusOK, `{"data":`)
		_, err := up.client(Options{}).Fetch(context.Background(), "aww")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding listing")
	})
}

func TestFetch_RateLimited(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"data":{"children":[{"data":{"url":"https://i.redd.it/a.jpg"}}]}}`)
	c := up.client(Options{RateLimit: rate.Every(1 << 62), Burst: 1})

	_, err := c.Fetch(context.Background(), "aww")
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "aww")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), up.hits.Load())
}

func TestListingURL(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://example.test/"})
	assert.Equal(t, "https://example.test/r/rarepuppers/hot.json", c.ListingURL("rarepuppers"))
}
