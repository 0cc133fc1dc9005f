// Package reddit fetches post metadata from reddit's public endpoints.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/config"
)

// PostData is the subset of a reddit post's JSON data the bot cares about.
type PostData struct {
	Title string
	// VideoURL is the URL the post links to, a v.redd.it link for hosted
	// videos. Empty when the post has no overriding destination URL.
	VideoURL string
}

// Client talks to reddit. It never follows redirects itself: the redirect
// target of /video/{id} is the comments page we are after.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	retry     RetryConfig
	logger    zerolog.Logger
}

// NewClient creates a reddit metadata client.
func NewClient(cfg config.RedditConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		retry:  defaultRetryConfig(),
		logger: logger,
	}
}

// CommentsURL resolves a v.redd.it content id to its comments page URL via
// the /video/{id} redirect. Returns "" when reddit does not redirect.
func (c *Client) CommentsURL(ctx context.Context, id string) (string, error) {
	c.logger.Debug().Str("id", id).Msg("fetching comments URL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/video/"+id, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch comments URL: %w", err)
	}
	defer resp.Body.Close()

	return resp.Header.Get("Location"), nil
}

// redditListing mirrors the shape of the {comments-url}.json payload. The
// endpoint returns an array of listings; the first child of the first
// listing is the post itself.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title               string `json:"title"`
				URLOverriddenByDest string `json:"url_overridden_by_dest"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// PostData fetches the title and destination URL of the post behind a
// comments page URL. Rate limits and 5xx responses are retried with
// backoff.
func (c *Client) PostData(ctx context.Context, commentsURL string) (PostData, error) {
	c.logger.Debug().Str("url", commentsURL).Msg("fetching post data")

	return retry(ctx, c.retry, func() (PostData, error) {
		return c.fetchPostData(ctx, commentsURL)
	}, isTransient)
}

func (c *Client) fetchPostData(ctx context.Context, commentsURL string) (PostData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(commentsURL, "/")+".json", nil)
	if err != nil {
		return PostData{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return PostData{}, fmt.Errorf("fetch post data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PostData{}, fmt.Errorf("fetch post data: %w", &statusError{code: resp.StatusCode})
	}

	var listings []redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return PostData{}, fmt.Errorf("decode post data: %w", err)
	}

	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return PostData{}, nil
	}

	post := listings[0].Data.Children[0].Data
	return PostData{Title: post.Title, VideoURL: post.URLOverriddenByDest}, nil
}
