package reddit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPostsFound is returned when the listing has no children at all.
	ErrNoPostsFound = errors.New("reddit: no posts found")

	// ErrNoValidPosts is returned when every post was filtered out or had no media URL.
	ErrNoValidPosts = errors.New("reddit: no valid media posts found")

	// ErrRateLimited is returned without a network call when the client-side limiter is exhausted.
	ErrRateLimited = errors.New("reddit: client rate limit exceeded")
)

// UpstreamError is returned when the listing endpoint answers with a non-2xx status.
type UpstreamError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("reddit: fetching %s: %d %s", e.URL, e.StatusCode, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}
