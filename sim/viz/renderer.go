package viz

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	occColor    = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
	eventColor  = color.New(color.FgGreen)
)

// Renderer tails a log file and redraws a compact status panel.
type Renderer struct {
	path     string
	interval time.Duration
	out      io.Writer

	offset int64
	last   Entry
	recent []Entry
}

// NewRenderer creates a renderer over path redrawing every interval.
func NewRenderer(path string, interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Renderer{path: path, interval: interval, out: os.Stdout}
}

// Run polls and redraws every interval until stop is closed, or
// forever when stop is nil.
func (r *Renderer) Run(stop <-chan struct{}) error {
	for {
		if err := r.poll(); err != nil {
			return err
		}
		r.draw()
		select {
		case <-stop:
			return nil
		case <-time.After(r.interval):
		}
	}
}

// poll reads any lines appended since the previous poll.
func (r *Renderer) poll() error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log: %w", err)
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		r.offset += int64(len(line)) + 1
		e, err := ParseLine(line)
		if err != nil {
			continue // tolerate partial or foreign lines
		}
		if e.HasMetrics {
			r.last = e
		}
		r.recent = append(r.recent, e)
		if len(r.recent) > 12 {
			r.recent = r.recent[1:]
		}
	}
	return sc.Err()
}

// draw clears the screen and paints the latest snapshot.
func (r *Renderer) draw() {
	fmt.Fprint(r.out, "\033[2J\033[H")
	headerColor.Fprintln(r.out, "=== SOR live view ===")
	if r.last.HasMetrics {
		occColor.Fprintf(r.out, "t=%dmin waiting %d/%d  regQ=%d triQ=%d specQ=%d wSem=%d\n",
			r.last.SimMinutes, r.last.Inside, r.last.Capacity,
			r.last.RegQ, r.last.TriageQ, r.last.SpecQ, r.last.WaitSem)
	}
	for _, e := range r.recent {
		c := eventColor
		if len(e.Text) >= 5 && e.Text[:5] == "ERROR" {
			c = errColor
		}
		c.Fprintf(r.out, "%4d %-11s %s\n", e.SimMinutes, e.Role, e.Text)
	}
}
