// Package record defines the result record written once per completed test
// attempt, and the builder that fills its static parts.
package record

import (
	"encoding/json"
	"time"
)

// Phase is one of the three lifecycle stages reported for every test.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Phases lists the lifecycle stages in execution order.
var Phases = []Phase{PhaseSetup, PhaseCall, PhaseTeardown}

// Outcome is a phase outcome or a final test outcome.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
	OutcomeXFailed Outcome = "xfailed"
	OutcomeXPassed Outcome = "xpassed"
	OutcomeRerun   Outcome = "rerun"
)

// Outcomes lists every final outcome in report order.
var Outcomes = []Outcome{
	OutcomePassed, OutcomeFailed, OutcomeSkipped, OutcomeError,
	OutcomeXFailed, OutcomeXPassed, OutcomeRerun,
}

// IsFailure reports whether the outcome counts as a failed or errored phase.
func (o Outcome) IsFailure() bool {
	return o == OutcomeFailed || o == OutcomeError
}

// PhaseDurations holds the wall-clock duration of each phase in seconds.
type PhaseDurations struct {
	Setup    float64 `json:"setup"`
	Call     float64 `json:"call"`
	Teardown float64 `json:"teardown"`
}

// Set stores the duration of a single phase.
func (d *PhaseDurations) Set(phase Phase, seconds float64) {
	switch phase {
	case PhaseSetup:
		d.Setup = seconds
	case PhaseCall:
		d.Call = seconds
	case PhaseTeardown:
		d.Teardown = seconds
	}
}

// Result is the flat, persisted projection of one completed test attempt.
type Result struct {
	Timestamp      float64           `json:"timestamp"`
	NodeID         string            `json:"nodeid"`
	Outcome        Outcome           `json:"outcome"`
	Duration       float64           `json:"duration"`
	PhaseDurations PhaseDurations    `json:"phase_durations"`
	Description    string            `json:"description"`
	Markers        []string          `json:"markers"`
	Metadata       map[string]any    `json:"metadata"`
	Environment    map[string]string `json:"environment"`
	Screenshot     string            `json:"screenshot"`
	Error          string            `json:"error"`
	Logs           []string          `json:"logs"`
	ExceptionType  string            `json:"exception_type"`
	WasXFail       string            `json:"wasxfail"`
	SkipReason     string            `json:"skip_reason"`
	WorkerID       string            `json:"worker_id"`
	GitHubLink     string            `json:"github_link"`
	Phase          Phase             `json:"phase"`
	ErrorPhase     Phase             `json:"error_phase"`
	ExecutionCount int               `json:"execution_count"`
	CapLog         string            `json:"caplog"`
	CapStderr      string            `json:"capstderr"`
	CapStdout      string            `json:"capstdout"`

	// Set on the aggregating process only; never persisted by workers.
	FormattedTimestamp string `json:"formatted_timestamp,omitempty"`
}

// MarshalJSON writes the optional text fields as null when they are empty.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Screenshot *string `json:"screenshot"`
		Error      *string `json:"error"`
		WasXFail   *string `json:"wasxfail"`
		SkipReason *string `json:"skip_reason"`
		ErrorPhase *Phase  `json:"error_phase"`
		CapLog     *string `json:"caplog"`
		CapStderr  *string `json:"capstderr"`
		CapStdout  *string `json:"capstdout"`
	}{
		plain:      plain(r),
		Screenshot: nullable(r.Screenshot),
		Error:      nullable(r.Error),
		WasXFail:   nullable(r.WasXFail),
		SkipReason: nullable(r.SkipReason),
		ErrorPhase: nullable(r.ErrorPhase),
		CapLog:     nullable(r.CapLog),
		CapStderr:  nullable(r.CapStderr),
		CapStdout:  nullable(r.CapStdout),
	})
}

func nullable[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}

// WasExpectedToFail reports whether the record carries an expected-failure outcome.
func (r *Result) WasExpectedToFail() bool {
	return r.Outcome == OutcomeXFailed || r.Outcome == OutcomeXPassed
}

// End returns the time the attempt finished, in unix seconds.
func (r *Result) End() float64 {
	return r.Timestamp + r.Duration
}

// Seconds converts a time to fractional unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromSeconds converts fractional unix seconds to a time.
func FromSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
