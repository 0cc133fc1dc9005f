// Package downloader fetches reddit-hosted videos with ffmpeg.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/config"
	"github.com/vredditbot/vredditbot/internal/domain"
	"github.com/vredditbot/vredditbot/pkg/filenamify"
)

// outputDimsRe matches the chosen output video stream line in ffmpeg
// diagnostics, e.g. "Video: h264 ... 1280x720 ...".
var outputDimsRe = regexp.MustCompile(`Video:\s.*?\s(\d+)x(\d+)[\s,]`)

// FFmpeg downloads videos by remuxing the DASH stream into a local mp4.
// The tool is treated as a black box: the downloader manages its lifecycle
// and parses its textual output, nothing more.
type FFmpeg struct {
	binPath string
	tempDir string
	proxy   string
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates an ffmpeg downloader from configuration.
func New(cfg config.DownloadConfig, logger zerolog.Logger) *FFmpeg {
	return &FFmpeg{
		binPath: cfg.FFmpegPath,
		tempDir: cfg.TempDir,
		proxy:   cfg.HTTPProxy,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// TargetPath returns the deterministic temp file path for a post URL. The
// same URL always maps to the same path so a partial file from a killed
// previous run is found and removed by the next attempt.
func (f *FFmpeg) TargetPath(url string) string {
	return filepath.Join(f.tempDir, filenamify.Safe(url)+".mp4")
}

// Download runs ffmpeg against the post's stream URL and returns the local
// file with best-effort dimension metadata. Failures come back as
// *domain.DownloadError carrying a user-facing message.
func (f *FFmpeg) Download(ctx context.Context, post *domain.VideoPost) (*domain.DownloadResult, error) {
	src := f.streamURL(post)
	out := f.TargetPath(post.URL)

	f.deleteIfExisting(out)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := f.buildArgs(src, out)
	f.logger.Info().Str("src", src).Str("out", out).Msg("starting download")

	cmd := exec.CommandContext(ctx, f.binPath, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewDownloadError(post.URL, domain.ErrDownloadTimeout, tail(output.String()))
		}
		derr := classify(post.URL, output.String())
		f.logger.Warn().Str("url", post.URL).Err(derr).Msg("download failed")
		return nil, derr
	}

	width, height := ParseOutputDimensions(output.String())

	stat, err := os.Stat(out)
	if err != nil {
		// Zero exit but no file: treat like a failed extraction.
		return nil, domain.NewDownloadError(post.URL, domain.ErrExtractionFailed, tail(output.String()))
	}

	res := &domain.DownloadResult{
		Path:   out,
		Width:  width,
		Height: height,
		Size:   stat.Size(),
	}
	f.logger.Debug().Str("path", res.Path).Int("width", width).Int("height", height).Int64("size", res.Size).Msg("download complete")
	return res, nil
}

// streamURL picks the URL handed to ffmpeg: the DASH playlist for
// v.redd.it content, otherwise the post URL as-is for a generic attempt.
func (f *FFmpeg) streamURL(post *domain.VideoPost) string {
	id := post.VRedditID()
	if id == "" {
		return post.URL
	}
	// ffmpeg's -http_proxy only applies to plain http
	scheme := "https"
	if f.proxy != "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://v.redd.it/%s/DASHPlaylist.mpd", scheme, id)
}

func (f *FFmpeg) buildArgs(src, out string) []string {
	var args []string
	if f.proxy != "" {
		args = append(args, "-http_proxy", f.proxy)
	}
	return append(args, "-i", src, "-c", "copy", "-y", out)
}

// deleteIfExisting removes a leftover file from a previous failed run.
func (f *FFmpeg) deleteIfExisting(path string) {
	if _, err := os.Stat(path); err == nil {
		f.logger.Warn().Str("path", path).Msg("stale file exists, deleting")
		os.Remove(path)
	}
}

// ParseOutputDimensions extracts the output resolution from ffmpeg
// diagnostics. Only the section after "Output #0" is considered so input
// stream lines cannot be mistaken for the chosen output. A missing match
// is not an error; dimensions are simply omitted.
func ParseOutputDimensions(diag string) (width, height int) {
	_, outSection, found := strings.Cut(diag, "Output #0")
	if !found {
		return 0, 0
	}
	m := outputDimsRe.FindStringSubmatch(outSection)
	if m == nil {
		return 0, 0
	}
	width, _ = strconv.Atoi(m[1])
	height, _ = strconv.Atoi(m[2])
	return width, height
}

// classify maps ffmpeg diagnostic output to a typed download error.
func classify(url, output string) *domain.DownloadError {
	switch {
	case strings.Contains(output, "Invalid data found"),
		strings.Contains(output, "404 Not Found"),
		strings.Contains(output, "403 Forbidden"):
		return domain.NewDownloadError(url, domain.ErrExtractionFailed, tail(output))
	case strings.Contains(output, "does not contain any stream"),
		strings.Contains(output, "Unsupported codec"):
		return domain.NewDownloadError(url, domain.ErrNoCompatibleFormat, tail(output))
	default:
		return domain.NewDownloadError(url, domain.ErrDownloadFailed, tail(output))
	}
}

// tail keeps the last part of the tool output for logging without carrying
// the full transcript around.
func tail(s string) string {
	const max = 2048
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
