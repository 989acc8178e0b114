// Package gotest converts `go test -json` output into lifecycle phase
// reports, so plain Go test suites produce result records without any
// harness code.
package gotest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/record"
)

// Event is a single event of `go test -json` output.
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Processor consumes phase reports. *lifecycle.Handler implements it.
type Processor interface {
	Process(ctx context.Context, item *lifecycle.Item, rep *lifecycle.Report) (*record.Result, error)
}

// Converter turns test events into setup, call and teardown reports.
type Converter struct {
	proc     Processor
	subtests bool
	log      logr.Logger

	attempts map[string]int
	running  map[string]*run
}

type run struct {
	start  time.Time
	output []string
}

// Option configures a Converter.
type Option func(*Converter)

// WithSubtests reports subtests as tests of their own. By default only
// top-level tests are reported.
func WithSubtests() Option {
	return func(c *Converter) { c.subtests = true }
}

// WithLogger sets the logger of the converter.
func WithLogger(l logr.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// NewConverter creates a converter feeding proc.
func NewConverter(proc Processor, opts ...Option) *Converter {
	c := &Converter{
		proc:     proc,
		log:      logr.Discard(),
		attempts: make(map[string]int),
		running:  make(map[string]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NodeID identifies a Go test as "<package>::<test>".
func NodeID(pkg, test string) string {
	return pkg + "::" + test
}

// Convert reads events from r until EOF and returns the finalized records.
// Lines that are not JSON events, such as build output, are skipped.
func (c *Converter) Convert(ctx context.Context, r io.Reader) ([]*record.Result, error) {
	var results []*record.Result
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			c.log.V(1).Info("skipping non-event line", "line", string(line))
			continue
		}
		res, err := c.Handle(ctx, ev)
		if err != nil {
			return results, err
		}
		results = append(results, res...)
	}
	if err := scanner.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Handle processes one event and returns the records it finalized.
func (c *Converter) Handle(ctx context.Context, ev Event) ([]*record.Result, error) {
	// Package-level events carry no test name.
	if ev.Test == "" {
		return nil, nil
	}
	if !c.subtests {
		if parent, _, ok := strings.Cut(ev.Test, "/"); ok {
			// Subtest output belongs to the top-level test; its own
			// results do not.
			if ev.Action == "output" {
				if r := c.running[NodeID(ev.Package, parent)]; r != nil {
					r.output = append(r.output, ev.Output)
				}
			}
			return nil, nil
		}
	}
	id := NodeID(ev.Package, ev.Test)

	switch ev.Action {
	case "run":
		c.attempts[id]++
		c.running[id] = &run{start: ev.Time}
	case "output":
		if r := c.running[id]; r != nil {
			r.output = append(r.output, ev.Output)
		}
	case "pass", "fail", "skip":
		r := c.running[id]
		delete(c.running, id)
		if r == nil {
			c.attempts[id]++
			r = &run{start: ev.Time.Add(-seconds(ev.Elapsed))}
		}
		return c.finish(ctx, ev, id, r)
	}
	return nil, nil
}

// InFlight returns the number of tests that started but did not finish.
func (c *Converter) InFlight() int {
	return len(c.running)
}

func (c *Converter) finish(ctx context.Context, ev Event, id string, r *run) ([]*record.Result, error) {
	item := &lifecycle.Item{
		NodeID:  id,
		Attempt: c.attempts[id],
		Meta:    map[string]any{"package": ev.Package},
		Markers: []string{},
	}
	start := r.start
	if start.IsZero() {
		start = ev.Time
	}
	duration := seconds(ev.Elapsed)
	output := strings.Join(r.output, "")

	call := &lifecycle.Report{
		Phase:     record.PhaseCall,
		Outcome:   record.OutcomePassed,
		Start:     start,
		Duration:  duration,
		CapStdout: strings.TrimSpace(output),
	}
	switch ev.Action {
	case "fail":
		call.Outcome = record.OutcomeFailed
		call.Exception = lifecycle.ExceptionAssertion
		call.TypeName = "FAIL"
		if isPanic(r.output) {
			call.Exception = lifecycle.ExceptionOther
			call.TypeName = "panic"
		}
		call.LongRepr = failureText(r.output)
		call.CrashMessage = failureReason(r.output)
	case "skip":
		call.Outcome = record.OutcomeSkipped
		call.SkipReason = failureReason(r.output)
	}

	reports := []*lifecycle.Report{
		{Phase: record.PhaseSetup, Outcome: record.OutcomePassed, Start: start},
		call,
		{Phase: record.PhaseTeardown, Outcome: record.OutcomePassed, Start: start.Add(duration)},
	}
	var out []*record.Result
	for _, rep := range reports {
		res, err := c.proc.Process(ctx, item, rep)
		if err != nil {
			return out, err
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func isPanic(output []string) bool {
	for _, line := range output {
		if strings.HasPrefix(strings.TrimSpace(line), "panic:") {
			return true
		}
	}
	return false
}

func isBoilerplate(trimmed string) bool {
	return trimmed == "" ||
		strings.HasPrefix(trimmed, "=== ") ||
		strings.HasPrefix(trimmed, "--- PASS") ||
		strings.HasPrefix(trimmed, "--- FAIL") ||
		strings.HasPrefix(trimmed, "--- SKIP")
}

// failureText is the test output without run and result markers.
func failureText(output []string) string {
	var b strings.Builder
	for _, line := range output {
		if isBoilerplate(strings.TrimSpace(line)) {
			continue
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}

// failureReason extracts the first "file.go:N: message" message, falling
// back to the first meaningful output line.
func failureReason(output []string) string {
	for _, line := range output {
		trimmed := strings.TrimSpace(line)
		if isBoilerplate(trimmed) {
			continue
		}
		idx := strings.Index(trimmed, ".go:")
		if idx < 0 {
			continue
		}
		afterFile := trimmed[idx+4:]
		if colonIdx := strings.Index(afterFile, ": "); colonIdx != -1 {
			return strings.TrimSpace(afterFile[colonIdx+2:])
		}
	}
	for _, line := range output {
		if trimmed := strings.TrimSpace(line); !isBoilerplate(trimmed) {
			return trimmed
		}
	}
	return ""
}
