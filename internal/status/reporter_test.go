package status

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordedCall struct {
	kind      string
	messageID int
	text      string
}

type fakeSink struct {
	mu      sync.Mutex
	calls   []recordedCall
	sendErr error
	nextID  int
}

func (s *fakeSink) SendStatus(_ context.Context, _ int64, _ int, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return 0, s.sendErr
	}
	s.nextID++
	s.calls = append(s.calls, recordedCall{kind: "send", messageID: s.nextID, text: text})
	return s.nextID, nil
}

func (s *fakeSink) EditStatus(_ context.Context, _ int64, messageID int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{kind: "edit", messageID: messageID, text: text})
	return nil
}

func (s *fakeSink) snapshot() []recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func newTestReporter(sink Sink, debounce time.Duration) *Reporter {
	return NewReporter(sink, 42, 7, debounce, zerolog.New(io.Discard))
}

func waitForCalls(t *testing.T, sink *fakeSink, n int) []recordedCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		calls := sink.snapshot()
		if len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sink calls, have %d", n, len(sink.snapshot()))
	return nil
}

func TestAppendLineDebouncesBurst(t *testing.T) {
	sink := &fakeSink{}
	r := newTestReporter(sink, 30*time.Millisecond)

	r.AppendLine("downloading video")
	r.AppendLine("parsing output")
	r.AppendLine("uploading")

	calls := waitForCalls(t, sink, 1)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want one collapsed flush", len(calls))
	}
	if calls[0].kind != "send" {
		t.Errorf("first flush kind = %q, want send", calls[0].kind)
	}
	if calls[0].text != "downloading video\nparsing output\nuploading" {
		t.Errorf("flushed text = %q, want full cumulative text", calls[0].text)
	}
}

func TestAppendLineRestartsTimerAcrossWindows(t *testing.T) {
	sink := &fakeSink{}
	r := newTestReporter(sink, 100*time.Millisecond)

	// Each append lands inside the previous one's debounce window, so the
	// timer keeps restarting and nothing flushes until the burst ends.
	r.AppendLine("resolving")
	time.Sleep(60 * time.Millisecond)
	r.AppendLine("downloading")
	time.Sleep(60 * time.Millisecond)
	r.AppendLine("uploading")

	waitForCalls(t, sink, 1)
	time.Sleep(250 * time.Millisecond)

	calls := sink.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d flushes, want one for the whole burst", len(calls))
	}
	if calls[0].text != "resolving\ndownloading\nuploading" {
		t.Errorf("flushed text = %q, want all lines in order", calls[0].text)
	}
}

func TestLaterAppendsEditTheSameMessage(t *testing.T) {
	sink := &fakeSink{}
	r := newTestReporter(sink, 10*time.Millisecond)

	r.AppendLine("first")
	waitForCalls(t, sink, 1)

	r.AppendLine("second")
	calls := waitForCalls(t, sink, 2)

	if calls[1].kind != "edit" {
		t.Errorf("second flush kind = %q, want edit", calls[1].kind)
	}
	if calls[1].messageID != calls[0].messageID {
		t.Errorf("edit targeted message %d, want %d", calls[1].messageID, calls[0].messageID)
	}
	if calls[1].text != "first\nsecond" {
		t.Errorf("edit text = %q", calls[1].text)
	}
}

func TestSetStatusFlushesImmediatelyAndCancelsPending(t *testing.T) {
	sink := &fakeSink{}
	r := newTestReporter(sink, 200*time.Millisecond)

	r.AppendLine("working")
	r.SetStatus("Download timed out: https://v.redd.it/abc")

	calls := sink.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want exactly one", len(calls))
	}
	if calls[0].text != "Download timed out: https://v.redd.it/abc" {
		t.Errorf("text = %q, want the replacement text only", calls[0].text)
	}

	// The debounced flush must not fire afterwards
	time.Sleep(300 * time.Millisecond)
	if got := len(sink.snapshot()); got != 1 {
		t.Errorf("got %d calls after the debounce window, want still 1", got)
	}
}

func TestSendFailureDoesNotPanic(t *testing.T) {
	sink := &fakeSink{sendErr: errors.New("bad request")}
	r := newTestReporter(sink, time.Millisecond)

	r.AppendLine("line")
	r.Flush()
	r.SetStatus("final")
}

func TestNilReporterIsNoop(t *testing.T) {
	var r *Reporter
	r.AppendLine("line")
	r.SetStatus("text")
	r.Flush()
}

func TestEmptyBufferDoesNotFlush(t *testing.T) {
	sink := &fakeSink{}
	r := newTestReporter(sink, time.Millisecond)

	r.Flush()
	if got := len(sink.snapshot()); got != 0 {
		t.Errorf("got %d calls, want none for empty text", got)
	}
}
