package domain

import "regexp"

var vredditIDRe = regexp.MustCompile(`https?://v\.redd\.it/([A-Za-z0-9]+)`)

// VRedditID extracts the content id from a v.redd.it URL.
// Returns "" when the URL is not a v.redd.it link.
func VRedditID(url string) string {
	m := vredditIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// VideoPost is the unit of work for one candidate URL. One instance is
// created per URL per request and is owned exclusively by the delivery
// orchestrator while the request is in flight.
type VideoPost struct {
	// URL is the resolved direct video URL. It is the cache key.
	URL string
	// SourceURL is the reddit comments page for attribution, when known.
	SourceURL string
	// Title is the human-readable caption, when known.
	Title string
	// FileID is the Telegram file handle. Set if and only if an upload
	// has succeeded for this URL.
	FileID string
}

// VRedditID returns the v.redd.it content id of the post URL, or "".
func (p *VideoPost) VRedditID() string {
	return VRedditID(p.URL)
}

// SourceLink returns the attribution link shown to the user: the comments
// page when known, otherwise the original URL.
func (p *VideoPost) SourceLink() string {
	if p.SourceURL != "" {
		return p.SourceURL
	}
	return p.URL
}

// Entry returns the persistable projection of the post.
func (p *VideoPost) Entry() CacheEntry {
	return CacheEntry{
		URL:       p.URL,
		SourceURL: p.SourceURL,
		Title:     p.Title,
		FileID:    p.FileID,
	}
}

// Apply fills the post's missing fields from a cache entry. Fields already
// set on the post win over cached values.
func (p *VideoPost) Apply(e CacheEntry) {
	merged := Merge(p.Entry(), e)
	p.SourceURL = merged.SourceURL
	p.Title = merged.Title
	p.FileID = merged.FileID
}

// CacheEntry is the persisted projection of a VideoPost, one record per
// content URL. Entries are created on first successful upload and never
// explicitly deleted.
type CacheEntry struct {
	URL       string `json:"url"`
	SourceURL string `json:"sourceUrl,omitempty"`
	Title     string `json:"title,omitempty"`
	FileID    string `json:"fileId,omitempty"`
}

// Merge combines an explicit entry with a cached one. Explicit fields win,
// cached values fill the gaps. The URL always comes from the explicit entry.
func Merge(explicit, cached CacheEntry) CacheEntry {
	out := explicit
	if out.SourceURL == "" {
		out.SourceURL = cached.SourceURL
	}
	if out.Title == "" {
		out.Title = cached.Title
	}
	if out.FileID == "" {
		out.FileID = cached.FileID
	}
	return out
}

// DownloadResult describes a completed download. It exists only for the
// duration of one download-and-send operation; Path is deleted best-effort
// once the upload finishes.
type DownloadResult struct {
	Path     string
	Width    int
	Height   int
	Duration int // seconds, best effort
	Size     int64
}
