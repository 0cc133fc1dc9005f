// Package status maintains a per-request progress message in a chat,
// coalescing rapid line appends into a bounded number of edits.
package status

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink sends and edits status messages. Implemented by the Telegram sender.
type Sink interface {
	SendStatus(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	EditStatus(ctx context.Context, chatID int64, messageID int, text string) error
}

// Reporter accumulates status lines for one request and flushes them to a
// single chat message, editing it in place. Appends within the debounce
// window collapse into one flush carrying the full cumulative text.
//
// A nil *Reporter is valid and discards everything; inline queries use it
// since they have no chat to report into.
type Reporter struct {
	sink     Sink
	chatID   int64
	replyTo  int
	debounce time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	lines    []string
	timer    *time.Timer
	timerGen uint64

	// flushMu serializes sends and edits so the message ID from the first
	// send is visible to every later flush.
	flushMu   sync.Mutex
	messageID int
}

func NewReporter(sink Sink, chatID int64, replyTo int, debounce time.Duration, logger zerolog.Logger) *Reporter {
	return &Reporter{
		sink:     sink,
		chatID:   chatID,
		replyTo:  replyTo,
		debounce: debounce,
		logger:   logger,
	}
}

// AppendLine adds a line to the status text and restarts the debounce
// timer, so a burst of appends produces a single message update carrying
// all of them once the burst goes quiet.
func (r *Reporter) AppendLine(line string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.lines = append(r.lines, line)
	if r.timer != nil {
		r.timer.Stop()
	}
	// The generation guard drops a callback from a timer that fired in
	// the window between Stop and the lock, keeping stale flushes out.
	r.timerGen++
	gen := r.timerGen
	r.timer = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		if r.timerGen != gen {
			r.mu.Unlock()
			return
		}
		r.timer = nil
		r.mu.Unlock()
		r.flush()
	})
	r.mu.Unlock()
}

// SetStatus replaces the whole status text and flushes immediately,
// cancelling any pending debounced flush. Terminal outcomes use it so
// the chat sees exactly one final update.
func (r *Reporter) SetStatus(text string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.lines = []string{text}
	r.cancelTimer()
	r.mu.Unlock()
	r.flush()
}

// Flush forces any buffered text out, bypassing the debounce window.
func (r *Reporter) Flush() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.cancelTimer()
	r.mu.Unlock()
	r.flush()
}

// cancelTimer stops any pending debounced flush. Callers hold r.mu.
func (r *Reporter) cancelTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

func (r *Reporter) flush() {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	// Snapshot under flushMu so a flush that waited its turn still sends
	// the newest cumulative text rather than a stale buffer.
	r.mu.Lock()
	text := strings.Join(r.lines, "\n")
	r.mu.Unlock()

	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r.messageID == 0 {
		id, err := r.sink.SendStatus(ctx, r.chatID, r.replyTo, text)
		if err != nil {
			r.logger.Warn().Err(err).Int64("chat", r.chatID).Msg("failed to send status message")
			return
		}
		r.messageID = id
		return
	}

	if err := r.sink.EditStatus(ctx, r.chatID, r.messageID, text); err != nil {
		r.logger.Warn().Err(err).Int64("chat", r.chatID).Int("message", r.messageID).Msg("failed to edit status message")
	}
}
