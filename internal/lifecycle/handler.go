// Package lifecycle turns the per-phase reports of a test (setup, call,
// teardown) into exactly one result record per attempt.
//
// A Handler keeps the status and timing of every attempt in flight, keyed by
// "<nodeid>:<attempt>". Once an attempt is complete it resolves the final
// outcome and hands the record to a Sink. Reports of different tests may be
// processed concurrently; reports of one attempt are expected in phase order.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/screenshot"
)

// Options configures a Handler.
type Options struct {
	// MaxReruns is the number of automatic reruns configured for the
	// session. Failed attempts within it are recorded as "rerun".
	MaxReruns int
	// Builder fills the static part of every record.
	Builder *record.Builder
	// Screenshots caps the screenshots taken by this process.
	Screenshots *screenshot.Budget
	// Sink receives finalized records. Required.
	Sink   Sink
	Logger logr.Logger
}

// Handler reconciles phase reports into result records.
type Handler struct {
	maxReruns   int
	builder     *record.Builder
	screenshots *screenshot.Budget
	sink        Sink
	log         logr.Logger

	mu       sync.Mutex
	statuses map[string]*status
	timings  map[string]*tracked
	reports  map[string]map[record.Phase]Report
}

// status is the per-attempt phase bookkeeping.
type status struct {
	phases      map[record.Phase]record.Outcome
	xfailStatus record.Outcome
	xfailReason string
	hasReason   bool
	emitted     bool
	attempt     int
}

// tracked is the per-attempt timing.
type tracked struct {
	start  time.Time
	total  time.Duration
	phases record.PhaseDurations
}

// snapshot is the state finalization works on, copied out of the handler.
type snapshot struct {
	status  status
	timing  tracked
	reports map[record.Phase]Report
}

// New creates a Handler.
func New(opts Options) (*Handler, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("lifecycle: sink is required")
	}
	if opts.MaxReruns < 0 {
		return nil, fmt.Errorf("lifecycle: max reruns must be >= 0, got %d", opts.MaxReruns)
	}
	h := &Handler{
		maxReruns:   opts.MaxReruns,
		builder:     opts.Builder,
		screenshots: opts.Screenshots,
		sink:        opts.Sink,
		log:         opts.Logger,
		statuses:    make(map[string]*status),
		timings:     make(map[string]*tracked),
		reports:     make(map[string]map[record.Phase]Report),
	}
	if h.builder == nil {
		h.builder = record.NewBuilder("", "")
	}
	if h.screenshots == nil {
		h.screenshots = screenshot.NewBudget(screenshot.DefaultLimit)
	}
	if h.log.GetSink() == nil {
		h.log = logr.Discard()
	}
	return h, nil
}

// StatusKey identifies one attempt of a test.
func StatusKey(nodeID string, attempt int) string {
	return fmt.Sprintf("%s:%d", nodeID, attempt)
}

// Process handles one phase report. It returns the finalized record when
// this report completed the attempt, and nil otherwise. Soft assertion
// failures in the call phase rewrite rep so that the caller sees the
// effective outcome.
func (h *Handler) Process(ctx context.Context, item *Item, rep *Report) (*record.Result, error) {
	if item == nil || rep == nil {
		return nil, fmt.Errorf("lifecycle: nil item or report")
	}
	if !slices.Contains(record.Phases, rep.Phase) {
		return nil, fmt.Errorf("lifecycle: unknown phase %q for %s", rep.Phase, item.NodeID)
	}
	key := StatusKey(item.NodeID, item.attempt())

	h.mu.Lock()
	st := h.statusFor(key, item.attempt())
	h.track(key, rep)

	st.phases[rep.Phase] = rep.Outcome
	if rep.Outcome == record.OutcomeFailed && rep.Exception == ExceptionOther {
		st.phases[rep.Phase] = record.OutcomeError
	}
	if rep.Phase == record.PhaseCall && rep.XFail {
		st.xfailStatus = record.OutcomeXFailed
		if rep.Outcome == record.OutcomePassed {
			st.xfailStatus = record.OutcomeXPassed
		}
		st.xfailReason, st.hasReason = rep.XFailReason, true
	}
	if rep.Phase == record.PhaseCall && item.hasSoftFailures() {
		applySoftFailures(item, rep, st)
	}

	h.storeReport(key, rep)

	var snap *snapshot
	if isComplete(rep, st) && !st.emitted {
		st.emitted = true
		snap = h.snapshot(key)
	}
	if rep.Phase == record.PhaseTeardown {
		delete(h.statuses, key)
		delete(h.timings, key)
		delete(h.reports, key)
	}
	h.mu.Unlock()

	if snap == nil {
		return nil, nil
	}
	res := h.finalize(ctx, item, *rep, snap)
	if err := h.sink.Write(ctx, res); err != nil {
		return res, fmt.Errorf("write result for %s: %w", key, err)
	}
	h.log.V(1).Info("test finished", "nodeid", res.NodeID, "attempt", res.ExecutionCount, "outcome", res.Outcome)
	return res, nil
}

// InFlight returns the number of attempts whose teardown has not been seen.
func (h *Handler) InFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.statuses)
}

func (h *Handler) statusFor(key string, attempt int) *status {
	st, ok := h.statuses[key]
	if !ok {
		st = &status{phases: make(map[record.Phase]record.Outcome, 3), attempt: attempt}
		h.statuses[key] = st
	}
	return st
}

// track keeps the earliest start and accumulates phase durations.
func (h *Handler) track(key string, rep *Report) {
	t, ok := h.timings[key]
	if !ok {
		t = &tracked{}
		h.timings[key] = t
	}
	if !rep.Start.IsZero() && (t.start.IsZero() || rep.Start.Before(t.start)) {
		t.start = rep.Start
	}
	t.phases.Set(rep.Phase, rep.Duration.Seconds())
	t.total += rep.Duration
}

func (h *Handler) storeReport(key string, rep *Report) {
	phases, ok := h.reports[key]
	if !ok {
		phases = make(map[record.Phase]Report, 3)
		h.reports[key] = phases
	}
	phases[rep.Phase] = *rep
}

func (h *Handler) snapshot(key string) *snapshot {
	snap := &snapshot{
		status:  *h.statuses[key],
		timing:  *h.timings[key],
		reports: make(map[record.Phase]Report, len(h.reports[key])),
	}
	snap.status.phases = make(map[record.Phase]record.Outcome, 3)
	for p, o := range h.statuses[key].phases {
		snap.status.phases[p] = o
	}
	for p, r := range h.reports[key] {
		snap.reports[p] = r
	}
	return snap
}

func applySoftFailures(item *Item, rep *Report, st *status) {
	if rep.XFail {
		st.xfailStatus = record.OutcomeXFailed
		rep.Outcome = record.OutcomeSkipped
	} else {
		rep.Outcome = record.OutcomeFailed
		st.phases[record.PhaseCall] = record.OutcomeFailed
	}
	rep.LongRepr = softFailureText(item.SoftAssert.Failures())
}

func softFailureText(failures []string) string {
	return fmt.Sprintf("Soft assert failures (%d):\n%s", len(failures), strings.Join(failures, "\n"))
}

// isComplete reports whether no further phase can change the outcome.
func isComplete(rep *Report, st *status) bool {
	switch rep.Phase {
	case record.PhaseTeardown:
		return true
	case record.PhaseSetup:
		return rep.Outcome != record.OutcomePassed
	case record.PhaseCall:
		return st.phases[record.PhaseSetup] == record.OutcomePassed && rep.Outcome != record.OutcomePassed
	}
	return false
}
