package downloader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/config"
	"github.com/vredditbot/vredditbot/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestFFmpeg(t *testing.T) *FFmpeg {
	t.Helper()
	return New(config.DownloadConfig{
		FFmpegPath: "ffmpeg",
		TempDir:    t.TempDir(),
		Timeout:    time.Minute,
	}, testLogger())
}

const sampleDiag = `Input #0, dash, from 'https://v.redd.it/abc/DASHPlaylist.mpd':
  Duration: 00:00:14.95, start: 0.000000, bitrate: 0 kb/s
    Stream #0:0: Video: h264 (Main), yuv420p(tv, bt709), 1920x1080 [SAR 1:1 DAR 16:9], 14 fps
Output #0, mp4, to '/tmp/out.mp4':
    Stream #0:0: Video: h264 (Main) (avc1 / 0x31637661), yuv420p(tv, bt709), 1280x720 [SAR 1:1 DAR 16:9], q=2-31, 14 fps
    Stream #0:1: Audio: aac (LC) (mp4a / 0x6134706D), 48000 Hz, stereo, fltp, 128 kb/s
`

func TestParseOutputDimensions(t *testing.T) {
	w, h := ParseOutputDimensions(sampleDiag)
	if w != 1280 || h != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720 from the output section", w, h)
	}
}

func TestParseOutputDimensions_NoOutputSection(t *testing.T) {
	w, h := ParseOutputDimensions("Input #0, dash\n  Stream: Video: h264 1920x1080 [SAR]")
	if w != 0 || h != 0 {
		t.Errorf("dimensions = %dx%d, want none without Output #0", w, h)
	}
}

func TestParseOutputDimensions_NoVideoLine(t *testing.T) {
	w, h := ParseOutputDimensions("Output #0, mp4\n  Stream: Audio: aac\n")
	if w != 0 || h != 0 {
		t.Errorf("dimensions = %dx%d, want none", w, h)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		output string
		want   error
	}{
		{"https://example.com: Invalid data found when processing input", domain.ErrExtractionFailed},
		{"Server returned 404 Not Found", domain.ErrExtractionFailed},
		{"Server returned 403 Forbidden (access denied)", domain.ErrExtractionFailed},
		{"Output file does not contain any stream", domain.ErrNoCompatibleFormat},
		{"Unsupported codec for output stream", domain.ErrNoCompatibleFormat},
		{"something else entirely", domain.ErrDownloadFailed},
	}

	for _, tt := range tests {
		got := classify("https://v.redd.it/abc", tt.output)
		if !errors.Is(got, tt.want) {
			t.Errorf("classify(%q) = %v, want %v", tt.output, got.Err, tt.want)
		}
		if got.URL != "https://v.redd.it/abc" {
			t.Errorf("URL = %q", got.URL)
		}
	}
}

func TestStreamURL(t *testing.T) {
	f := newTestFFmpeg(t)

	post := &domain.VideoPost{URL: "https://v.redd.it/abc123"}
	if got := f.streamURL(post); got != "https://v.redd.it/abc123/DASHPlaylist.mpd" {
		t.Errorf("streamURL = %q", got)
	}

	// Non-hosted URLs are handed to ffmpeg untouched for a generic attempt.
	generic := &domain.VideoPost{URL: "https://www.reddit.com/r/aww/comments/abc/"}
	if got := f.streamURL(generic); got != generic.URL {
		t.Errorf("streamURL = %q, want the URL as-is", got)
	}
}

func TestStreamURL_ProxyDowngradesScheme(t *testing.T) {
	f := New(config.DownloadConfig{
		TempDir:   t.TempDir(),
		Timeout:   time.Minute,
		HTTPProxy: "http://127.0.0.1:8080",
	}, testLogger())

	post := &domain.VideoPost{URL: "https://v.redd.it/abc123"}
	if got := f.streamURL(post); got != "http://v.redd.it/abc123/DASHPlaylist.mpd" {
		t.Errorf("streamURL = %q, want plain http through the proxy", got)
	}
}

func TestBuildArgs(t *testing.T) {
	f := newTestFFmpeg(t)

	args := f.buildArgs("https://v.redd.it/abc/DASHPlaylist.mpd", "/tmp/out.mp4")
	want := []string{"-i", "https://v.redd.it/abc/DASHPlaylist.mpd", "-c", "copy", "-y", "/tmp/out.mp4"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgs_WithProxy(t *testing.T) {
	f := New(config.DownloadConfig{
		TempDir:   t.TempDir(),
		Timeout:   time.Minute,
		HTTPProxy: "http://127.0.0.1:8080",
	}, testLogger())

	args := f.buildArgs("src", "out")
	if args[0] != "-http_proxy" || args[1] != "http://127.0.0.1:8080" {
		t.Errorf("args = %v, proxy flags should come first", args)
	}
}

func TestTargetPath_Deterministic(t *testing.T) {
	f := newTestFFmpeg(t)

	url := "https://v.redd.it/abc123"
	if f.TargetPath(url) != f.TargetPath(url) {
		t.Error("TargetPath must be deterministic per URL")
	}
	if f.TargetPath(url) == f.TargetPath("https://v.redd.it/other") {
		t.Error("distinct URLs must not share a target path")
	}
	if filepath.Ext(f.TargetPath(url)) != ".mp4" {
		t.Errorf("TargetPath = %q, want .mp4 suffix", f.TargetPath(url))
	}
}

func TestDeleteIfExisting(t *testing.T) {
	f := newTestFFmpeg(t)

	path := filepath.Join(t.TempDir(), "stale.mp4")
	if err := os.WriteFile(path, []byte("partial"), 0644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	f.deleteIfExisting(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale file should have been removed")
	}

	// Missing files are fine
	f.deleteIfExisting(path)
}

func TestTail(t *testing.T) {
	short := "short output"
	if tail(short) != short {
		t.Errorf("tail(%q) = %q", short, tail(short))
	}

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	if got := tail(string(long)); len(got) != 2048 {
		t.Errorf("len(tail) = %d, want 2048", len(got))
	}
}
