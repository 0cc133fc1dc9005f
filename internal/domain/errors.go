package domain

import (
	"errors"
	"fmt"
)

// Download failure categories. All of them are expected, recoverable
// outcomes of one request: they are resolved into a status message and
// never crash the enclosing request.
var (
	// ErrNoCompatibleFormat is returned when the source has no stream the
	// tool can copy into an mp4 container.
	ErrNoCompatibleFormat = errors.New("no compatible video format")

	// ErrExtractionFailed is returned when the URL does not point at
	// downloadable video data.
	ErrExtractionFailed = errors.New("video extraction failed")

	// ErrDownloadTimeout is returned when the download tool exceeds the
	// caller-supplied timeout.
	ErrDownloadTimeout = errors.New("video download timed out")

	// ErrDownloadFailed is returned for any other non-zero tool exit.
	ErrDownloadFailed = errors.New("video download failed")
)

// DownloadError wraps a download failure with the post URL and the tail of
// the tool's diagnostic output. Err is one of the sentinel errors above.
type DownloadError struct {
	URL    string
	Err    error
	Output string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// UserMessage returns the user-facing text for the failure, suitable for a
// terminal status update. It never contains raw tool output.
func (e *DownloadError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrDownloadTimeout):
		return fmt.Sprintf("Download timed out: %s", e.URL)
	case errors.Is(e.Err, ErrNoCompatibleFormat):
		return fmt.Sprintf("No compatible video format found: %s", e.URL)
	case errors.Is(e.Err, ErrExtractionFailed):
		return fmt.Sprintf("Could not extract a video from %s", e.URL)
	default:
		return fmt.Sprintf("Video download failed: %s", e.URL)
	}
}

// NewDownloadError creates a DownloadError for the given post URL.
func NewDownloadError(url string, err error, output string) *DownloadError {
	return &DownloadError{URL: url, Err: err, Output: output}
}
