// Package timing records how long helper steps inside a test take.
//
// Steps are tracked with Log.Track. Nested calls are indented by call depth,
// so the entries read as a call tree once sorted by start time:
//
//	fixture - logged_in_user: 2.1042 seconds
//	  function - open_catalog: 0.8123 seconds
package timing

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Kind classifies a tracked step.
type Kind string

const (
	KindFunction Kind = "function"
	KindFixture  Kind = "fixture"
)

const (
	// ExcludedThreshold is the duration above which excluded steps are still recorded.
	ExcludedThreshold = 5 * time.Second
	// WarnThreshold is the duration above which a warning is logged.
	WarnThreshold = 10 * time.Second
)

// DefaultExclude lists low-level browser steps that are only worth
// recording when they are unusually slow.
var DefaultExclude = []string{
	"catch_response", "wait_for_loader", "wait_for_page_load", "open", "click", "fill",
	"wait_until_hidden", "wait_until_visible", "wait_until_enabled", "wait_until_disabled",
	"wait_for_ended_process",
}

// Entry is one recorded step.
type Entry struct {
	Start time.Time
	Text  string
}

// Log is the execution log of a single test. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	depth   int
	entries []Entry
	exclude map[string]bool
	logger  logr.Logger
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger used for slow-step warnings.
func WithLogger(l logr.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithExclude replaces the exclusion list.
func WithExclude(names []string) Option {
	return func(lg *Log) {
		lg.exclude = make(map[string]bool, len(names))
		for _, n := range names {
			lg.exclude[n] = true
		}
	}
}

// NewLog creates an empty execution log.
func NewLog(opts ...Option) *Log {
	lg := &Log{logger: logr.Discard(), now: time.Now}
	WithExclude(DefaultExclude)(lg)
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// Track runs fn and records its duration under name. The error from fn is
// returned unchanged; the step is recorded even when fn fails or panics.
func (lg *Log) Track(name string, kind Kind, fn func() error) error {
	lg.mu.Lock()
	level := lg.depth
	lg.depth++
	lg.mu.Unlock()

	start := lg.now()
	defer func() {
		elapsed := lg.now().Sub(start)
		lg.finish(name, kind, level, start, elapsed)
	}()
	return fn()
}

func (lg *Log) finish(name string, kind Kind, level int, start time.Time, elapsed time.Duration) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.depth--

	if lg.exclude[name] && elapsed <= ExcludedThreshold {
		return
	}
	if elapsed > WarnThreshold {
		lg.logger.Info("step took over 10 seconds to execute", "step", name, "seconds", fmt.Sprintf("%.4f", elapsed.Seconds()))
	}
	text := fmt.Sprintf("%s%s - %s: %.4f seconds", strings.Repeat("  ", level), kind, name, elapsed.Seconds())
	lg.entries = append(lg.entries, Entry{Start: start, Text: text})
}

// Entries returns the recorded steps ordered by start time.
func (lg *Log) Entries() []Entry {
	lg.mu.Lock()
	out := slices.Clone(lg.entries)
	lg.mu.Unlock()
	slices.SortStableFunc(out, func(a, b Entry) int { return a.Start.Compare(b.Start) })
	return out
}

// Lines returns the text of every entry ordered by start time.
func (lg *Log) Lines() []string {
	entries := lg.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Text
	}
	return lines
}
