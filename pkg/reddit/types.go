package reddit

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://www.reddit.com"
	DefaultUserAgent = "awwbot:v1.0.0 (by /u/awwbot)"
	DefaultMinScore  = 10

	defaultTitle  = "Cute post"
	defaultAuthor = "Unknown"

	deletedAuthor = "[deleted]"

	// maxErrorBody caps how much of an error response is kept in UpstreamError.
	maxErrorBody = 512
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL    string
	UserAgent  string
	MinScore   int
	HTTPClient *http.Client

	// RateLimit caps outbound listing requests per second. Zero disables the limiter.
	RateLimit rate.Limit
	Burst     int
}

// Client fetches hot listings and turns them into cache items.
type Client struct {
	baseURL   string
	userAgent string
	minScore  int
	http      *http.Client
	limiter   *rate.Limiter
}

type listing struct {
	Data *struct {
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	// Galleries are flagged on the wrapper by some mirrors and on data by Reddit itself.
	IsGallery bool `json:"is_gallery"`
	Data      post `json:"data"`
}

type post struct {
	Title             string `json:"title"`
	Author            string `json:"author"`
	Subreddit         string `json:"subreddit"`
	Permalink         string `json:"permalink"`
	URL               string `json:"url"`
	Score             *int   `json:"score"`
	Over18            bool   `json:"over_18"`
	IsGallery         bool   `json:"is_gallery"`
	RemovedByCategory string `json:"removed_by_category"`
	Media             *media `json:"media"`
	SecureMedia       *media `json:"secure_media"`
}

type media struct {
	RedditVideo *struct {
		FallbackURL string `json:"fallback_url"`
	} `json:"reddit_video"`
}

func (m *media) fallbackURL() string {
	if m == nil || m.RedditVideo == nil {
		return ""
	}
	return m.RedditVideo.FallbackURL
}

var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}
