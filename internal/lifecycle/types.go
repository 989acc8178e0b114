package lifecycle

import (
	"context"
	"time"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/screenshot"
	"github.com/Goraved/aqareport/internal/timing"
)

// ExceptionKind classifies the error that failed a phase.
type ExceptionKind int

const (
	// ExceptionNone means the phase raised nothing.
	ExceptionNone ExceptionKind = iota
	// ExceptionAssertion is a failed assertion.
	ExceptionAssertion
	// ExceptionFail is an explicit test failure (t.Fatal and friends).
	ExceptionFail
	// ExceptionOther is any other error: a panic, a timeout, a broken fixture.
	ExceptionOther
)

// String returns the name used in event streams.
func (k ExceptionKind) String() string {
	switch k {
	case ExceptionAssertion:
		return "assertion"
	case ExceptionFail:
		return "fail"
	case ExceptionOther:
		return "other"
	default:
		return "none"
	}
}

// ParseExceptionKind is the inverse of String. Unknown names map to ExceptionOther.
func ParseExceptionKind(s string) ExceptionKind {
	switch s {
	case "", "none":
		return ExceptionNone
	case "assertion":
		return ExceptionAssertion
	case "fail":
		return ExceptionFail
	default:
		return ExceptionOther
	}
}

// Report is the outcome of one phase as reported by the host framework.
type Report struct {
	Phase    record.Phase
	Outcome  record.Outcome // passed, failed or skipped
	Start    time.Time
	Duration time.Duration

	Exception ExceptionKind

	// XFail is set on reports of tests marked as expected to fail, once the
	// framework has applied the marker (normally the call report).
	XFail       bool
	XFailReason string

	// LongRepr is the full failure text.
	LongRepr     string
	CrashMessage string
	TypeName     string
	// SkipReason is the raw skip text, e.g. "Skipped: flaky on CI".
	SkipReason string

	CapLog    string
	CapStderr string
	CapStdout string
}

// SoftAsserter exposes the soft assertion failures of a test.
type SoftAsserter interface {
	HasFailures() bool
	Failures() []string
}

// Item is the test a report belongs to.
type Item struct {
	NodeID      string
	Attempt     int
	Description string
	Markers     []string
	Meta        map[string]any
	Line        int

	CaseLink string
	CaseID   string

	Logs         []string
	ExecutionLog []timing.Entry

	Page       screenshot.Page
	SoftAssert SoftAsserter
}

func (it *Item) attempt() int {
	if it.Attempt < 1 {
		return 1
	}
	return it.Attempt
}

func (it *Item) hasSoftFailures() bool {
	return it.SoftAssert != nil && it.SoftAssert.HasFailures()
}

// Sink receives every finalized record.
type Sink interface {
	Write(ctx context.Context, r *record.Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *record.Result) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, r *record.Result) error {
	return f(ctx, r)
}
