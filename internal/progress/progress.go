// Package progress provides the progress sink abstraction used by
// long-running downloads. The core is agnostic to whether the sink is a
// terminal renderer, a log, or null.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// Reporter receives item-level progress for one tracked task.
type Reporter interface {
	// Advance reports that count more items completed.
	Advance(count int)
	// Done finalizes the task.
	Done()
}

// Sink creates tracked tasks. Implementations must be safe for use from
// multiple goroutines.
type Sink interface {
	// StartTask begins tracking a task of total items under a label and
	// returns its reporter.
	StartTask(label string, total int) Reporter
}

// NilSink is a no-op Sink for when progress tracking is disabled.
type NilSink struct{}

// StartTask returns a no-op reporter.
func (NilSink) StartTask(string, int) Reporter { return nilReporter{} }

type nilReporter struct{}

func (nilReporter) Advance(int) {}
func (nilReporter) Done()       {}

// ConsoleSink renders task counters to a writer, one line per update.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// StartTask implements Sink.
func (s *ConsoleSink) StartTask(label string, total int) Reporter {
	return &consoleReporter{
		sink:  s,
		label: label,
		total: total,
	}
}

type consoleReporter struct {
	sink    *ConsoleSink
	label   string
	total   int
	current int
}

// Advance increments the counter; the counter is monotone even when
// downloads complete out of order.
func (r *consoleReporter) Advance(count int) {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.current += count
	if r.current > r.total {
		r.current = r.total
	}
	fmt.Fprintf(r.sink.w, "%s: %d/%d\n", r.label, r.current, r.total)
}

func (r *consoleReporter) Done() {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	fmt.Fprintf(r.sink.w, "%s: done\n", r.label)
}

// Verify interface compliance at compile time.
var (
	_ Sink     = NilSink{}
	_ Sink     = (*ConsoleSink)(nil)
	_ Reporter = nilReporter{}
	_ Reporter = (*consoleReporter)(nil)
)
