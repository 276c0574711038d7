// Streaming log: record format, the per-line metrics block, and the
// logger actor that drains LogChan into an append-only file until the
// END sentinel arrives.

package sim

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// logSentinel terminates the logger when a record's text starts with it.
const logSentinel = "END"

// MetricsSnapshot is the optional per-line metrics block: waiting-room
// occupancy, channel depths and semaphore values at emit time.
type MetricsSnapshot struct {
	Inside    int
	Capacity  int
	RegQ      int
	TriageQ   int
	SpecQ     int
	WaitSem   int
	StateLock int
}

// Block renders the metrics fragment, trailing semicolon included.
func (m MetricsSnapshot) Block() string {
	return fmt.Sprintf("wR=%d/%d;rQ=%d;tQ=%d;sQ=%d;wSem=%d;sSem=%d;",
		m.Inside, m.Capacity, m.RegQ, m.TriageQ, m.SpecQ, m.WaitSem, m.StateLock)
}

// LogRecord is the payload on LogChan. All log records share one
// priority key.
type LogRecord struct {
	SimMinutes int
	ActorID    ActorID
	Role       Role
	Metrics    *MetricsSnapshot
	Text       string
}

// PriorityKey implements Keyed.
func (r LogRecord) PriorityKey() int64 { return 1 }

// FormatLogLine renders one record as a log line (no newline):
//
//	simMinutes;actorID;[metricsBlock]role;text
func FormatLogLine(rec LogRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d;%d;", rec.SimMinutes, rec.ActorID)
	if rec.Metrics != nil {
		sb.WriteString(rec.Metrics.Block())
	}
	sb.WriteString(rec.Role.Label())
	sb.WriteString(";")
	sb.WriteString(rec.Text)
	return sb.String()
}

// OpenLogFile opens (creating if needed) the append-only log file.
// The director opens it before spawning the logger so an unwritable
// path is a bootstrap failure, not a silent dead logger.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// runLogger consumes LogChan and appends one line per record to f.
// It returns when a record's text begins with the END sentinel, or
// when the channel is destroyed. It does not poll its stop flag, but
// Stop cancels its context, which also ends the receive loop.
func runLogger(ctx context.Context, k *Kernel, h *Handle, f *os.File) {
	defer h.finish()
	defer f.Close()

	for {
		rec, err := k.LogChan.Receive(ctx, 1)
		if err != nil {
			// Destroyed or canceled: both end the log stream.
			return
		}
		if strings.HasPrefix(rec.Text, logSentinel) {
			return
		}
		// A failing write must not take the simulation down; keep
		// draining.
		fmt.Fprintln(f, FormatLogLine(rec))
	}
}
