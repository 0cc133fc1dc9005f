// Package resolver turns free-form message text into video posts.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/cache"
	"github.com/vredditbot/vredditbot/internal/domain"
	"github.com/vredditbot/vredditbot/internal/reddit"
)

var (
	vredditRe = regexp.MustCompile(`https?://v\.redd\.it/([A-Za-z0-9]+)`)
	// Captures the canonical comments path and stops before trailing
	// fragments such as share suffixes and query strings.
	commentsRe = regexp.MustCompile(`https?://(?:www\.)?reddit\.com/r/\w+/comments/\w+(?:/[\w%-]+/?)?`)
)

// Metadata fetches post metadata. Satisfied by *reddit.Client.
type Metadata interface {
	CommentsURL(ctx context.Context, id string) (string, error)
	PostData(ctx context.Context, commentsURL string) (reddit.PostData, error)
}

// Resolver resolves URLs found in message text into VideoPosts, reading
// the cache for known content and lazily completing missing metadata.
type Resolver struct {
	store  cache.Store
	reddit Metadata
	logger zerolog.Logger
}

// New creates a resolver.
func New(store cache.Store, meta Metadata, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, reddit: meta, logger: logger}
}

// FindInText returns a post for the first recognizable video URL in text,
// or nil when the text contains none.
func (r *Resolver) FindInText(ctx context.Context, text string) (*domain.VideoPost, error) {
	posts, err := r.FindAllInText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return posts[0], nil
}

// FindAllInText returns one post per recognizable video URL in text, in
// order of appearance. Duplicate URLs yield one post each.
func (r *Resolver) FindAllInText(ctx context.Context, text string) ([]*domain.VideoPost, error) {
	var posts []*domain.VideoPost
	for _, url := range extractURLs(text) {
		post, err := r.FromURL(ctx, url)
		if err != nil {
			return nil, err
		}
		if post != nil {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// candidate is one URL found in text with its position, used to keep the
// combined match list in appearance order.
type candidate struct {
	pos int
	url string
}

func extractURLs(text string) []string {
	var found []candidate
	for _, m := range vredditRe.FindAllStringSubmatchIndex(text, -1) {
		// Normalize to the bare content URL so equivalent links share a
		// cache key.
		id := text[m[2]:m[3]]
		found = append(found, candidate{pos: m[0], url: "https://v.redd.it/" + id})
	}
	for _, m := range commentsRe.FindAllStringIndex(text, -1) {
		url := text[m[0]:m[1]]
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		found = append(found, candidate{pos: m[0], url: url})
	}

	// Insertion sort by position; messages carry a handful of URLs at most.
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}

	urls := make([]string, 0, len(found))
	for _, c := range found {
		urls = append(urls, c.url)
	}
	return urls
}

// FromURL resolves a single URL into a post. Comments-page URLs are
// dereferenced to find the underlying video; when the page wraps no video
// the post is returned for the original URL unresolved, so a generic
// download can still be attempted. Returns nil for unrecognized URLs.
func (r *Resolver) FromURL(ctx context.Context, url string) (*domain.VideoPost, error) {
	post := r.resolve(ctx, url)
	if post == nil {
		return nil, nil
	}

	// Pre-populate from the cache; freshly resolved fields win.
	entry, ok, err := r.store.Read(ctx, post.URL)
	if err != nil {
		r.logger.Warn().Str("url", post.URL).Err(err).Msg("cache read failed, treating as miss")
	} else if ok {
		post.Apply(entry)
	}

	return post, nil
}

func (r *Resolver) resolve(ctx context.Context, url string) *domain.VideoPost {
	if id := domain.VRedditID(url); id != "" {
		return &domain.VideoPost{URL: "https://v.redd.it/" + id}
	}

	if !commentsRe.MatchString(url) {
		return nil
	}

	data, err := r.reddit.PostData(ctx, url)
	if err != nil {
		// Degrade gracefully: keep the post and let the downloader have
		// a go at the original URL.
		r.logger.Warn().Str("url", url).Err(err).Msg("post data fetch failed")
		return &domain.VideoPost{URL: url}
	}

	if id := domain.VRedditID(data.VideoURL); id != "" {
		return &domain.VideoPost{
			URL:       "https://v.redd.it/" + id,
			SourceURL: url,
			Title:     data.Title,
		}
	}

	// No hosted video behind the page; intentionally not an error.
	return &domain.VideoPost{URL: url, Title: data.Title}
}

// FillMissingMetadata fetches the comments URL and title for posts created
// from a direct video link. It is idempotent: once the fields are known
// (from resolution, cache, or a previous call) it performs no network
// calls. The refreshed entry is written back to the cache; the store skips
// the write unless the post already carries a file handle.
func (r *Resolver) FillMissingMetadata(ctx context.Context, post *domain.VideoPost) error {
	fetched := false

	if post.SourceURL == "" {
		if id := post.VRedditID(); id != "" {
			commentsURL, err := r.reddit.CommentsURL(ctx, id)
			if err != nil {
				r.logger.Warn().Str("url", post.URL).Err(err).Msg("comments URL fetch failed")
				return nil
			}
			post.SourceURL = commentsURL
			fetched = true
		}
	}

	if post.SourceURL != "" && post.Title == "" {
		data, err := r.reddit.PostData(ctx, post.SourceURL)
		if err != nil {
			r.logger.Warn().Str("url", post.SourceURL).Err(err).Msg("post data fetch failed")
			return nil
		}
		post.Title = data.Title
		fetched = true
	}

	if fetched {
		if err := r.store.Write(ctx, post.Entry()); err != nil {
			r.logger.Warn().Str("url", post.URL).Err(err).Msg("cache write failed")
		}
	}

	return nil
}
