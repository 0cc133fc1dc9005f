// Package delivery turns a resolved VideoPost into a sent video: it decides
// between cache reuse and a fresh download, enforces the size ceiling,
// uploads, persists the resulting file handle and cleans up temp files.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vredditbot/vredditbot/internal/cache"
	"github.com/vredditbot/vredditbot/internal/domain"
	"github.com/vredditbot/vredditbot/internal/status"
)

// Chat identifies where results go and how failures may be reported back.
type Chat struct {
	ID   int64
	Type string
}

// Private reports whether the chat is a 1:1 conversation. Too-large
// notices get a direct text reply only there; in groups the status
// message alone carries the outcome.
func (c Chat) Private() bool {
	return c.Type == "private"
}

// VideoUpload carries everything the platform adapter needs to push a
// local video file into a chat.
type VideoUpload struct {
	ChatID    int64
	Path      string
	Size      int64
	Width     int
	Height    int
	Duration  int
	Caption   string
	SourceURL string
	ReplyTo   int
}

// Delivery is what the orchestrator hands back to the transport layer.
// Uploaded means the video message was already sent during the upload;
// otherwise FileID (cache reuse) or Text (plain reply) tells the caller
// what to send.
type Delivery struct {
	FileID    string
	Caption   string
	SourceURL string
	Text      string
	ReplyTo   int
	Uploaded  bool
}

// Uploader is the outward platform surface the orchestrator needs.
type Uploader interface {
	NotifyUploading(ctx context.Context, chatID int64)
	UploadVideo(ctx context.Context, up VideoUpload) (string, error)
}

// Metadata fills a post's missing sourceUrl/title fields.
type Metadata interface {
	FillMissingMetadata(ctx context.Context, post *domain.VideoPost) error
}

// Downloader fetches the video bytes to local disk.
type Downloader interface {
	Download(ctx context.Context, post *domain.VideoPost) (*domain.DownloadResult, error)
}

type Orchestrator struct {
	uploader    Uploader
	metadata    Metadata
	downloader  Downloader
	store       cache.Store
	maxFileSize int64
	logger      zerolog.Logger
}

func NewOrchestrator(uploader Uploader, metadata Metadata, downloader Downloader, store cache.Store, maxFileSize int64, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		uploader:    uploader,
		metadata:    metadata,
		downloader:  downloader,
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger.With().Str("component", "delivery").Logger(),
	}
}

// DownloadAndSend drives one post from resolution to delivery.
//
// Cache hits skip both download and upload and only top up missing
// metadata. Download failures with a known cause become a terminal
// status message and a nil delivery; unexpected errors are returned to
// the caller after cleanup so its own boundary can report them. rep may
// be a nil *status.Reporter (inline context), which discards all status
// output.
func (o *Orchestrator) DownloadAndSend(ctx context.Context, post *domain.VideoPost, chat Chat, replyTo int, rep *status.Reporter) (*Delivery, error) {
	if post.FileID != "" {
		if err := o.metadata.FillMissingMetadata(ctx, post); err != nil {
			o.logger.Warn().Err(err).Str("url", post.URL).Msg("metadata fill for cached post failed")
		}
		o.logger.Info().Str("url", post.URL).Str("file_id", post.FileID).Msg("reusing cached file handle")
		return &Delivery{
			FileID:    post.FileID,
			Caption:   post.Title,
			SourceURL: post.SourceLink(),
			ReplyTo:   replyTo,
		}, nil
	}

	o.uploader.NotifyUploading(ctx, chat.ID)
	rep.AppendLine(fmt.Sprintf("Downloading %s …", html.EscapeString(post.URL)))

	var result *domain.DownloadResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.downloader.Download(gctx, post)
		result = r
		return err
	})
	g.Go(func() error {
		// Metadata is nice-to-have: a fetch failure must not sink the
		// download, so errors stop here.
		if err := o.metadata.FillMissingMetadata(gctx, post); err != nil {
			o.logger.Warn().Err(err).Str("url", post.URL).Msg("metadata fill failed")
		}
		return nil
	})

	err := g.Wait()
	if result != nil && result.Path != "" {
		defer func(path string) {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				o.logger.Warn().Err(rmErr).Str("path", path).Msg("temp file cleanup failed")
			}
		}(result.Path)
	}

	if err != nil {
		var dlErr *domain.DownloadError
		if errors.As(err, &dlErr) {
			o.logger.Info().Err(err).Str("url", post.URL).Msg("download failed")
			rep.SetStatus(dlErr.UserMessage())
			return nil, nil
		}
		rep.SetStatus("Something went wrong, sorry about that.")
		return nil, fmt.Errorf("download %s: %w", post.URL, err)
	}

	if result.Size > o.maxFileSize {
		msg := fmt.Sprintf("Video too large (%.2f MB): %s", float64(result.Size)/(1024*1024), post.URL)
		o.logger.Info().Int64("size", result.Size).Str("url", post.URL).Msg("video exceeds size ceiling")
		rep.SetStatus(msg)
		if chat.Private() {
			return &Delivery{Text: msg, ReplyTo: replyTo}, nil
		}
		return nil, nil
	}

	rep.AppendLine(fmt.Sprintf("Uploading video (%dx%d, %.2f MB) …", result.Width, result.Height, float64(result.Size)/(1024*1024)))

	fileID, err := o.uploader.UploadVideo(ctx, VideoUpload{
		ChatID:    chat.ID,
		Path:      result.Path,
		Size:      result.Size,
		Width:     result.Width,
		Height:    result.Height,
		Duration:  result.Duration,
		Caption:   post.Title,
		SourceURL: post.SourceLink(),
		ReplyTo:   replyTo,
	})
	if err != nil {
		rep.SetStatus("Something went wrong, sorry about that.")
		return nil, fmt.Errorf("upload %s: %w", post.URL, err)
	}

	post.FileID = fileID
	if err := o.store.Write(ctx, post.Entry()); err != nil {
		o.logger.Warn().Err(err).Str("url", post.URL).Msg("cache write failed")
	}

	rep.SetStatus(o.doneStatus(post))
	o.logger.Info().Str("url", post.URL).Str("file_id", fileID).Msg("video delivered")

	return &Delivery{
		FileID:    fileID,
		Caption:   post.Title,
		SourceURL: post.SourceLink(),
		ReplyTo:   replyTo,
		Uploaded:  true,
	}, nil
}

func (o *Orchestrator) doneStatus(post *domain.VideoPost) string {
	lines := []string{"Done ✅", fmt.Sprintf("<b>source</b>: %s", html.EscapeString(post.SourceLink()))}
	if post.Title != "" {
		lines = append(lines, fmt.Sprintf("<b>title</b>: %s", html.EscapeString(post.Title)))
	}
	return strings.Join(lines, "\n")
}
