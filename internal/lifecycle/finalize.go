package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/screenshot"
	"github.com/Goraved/aqareport/internal/timing"
)

// resolveOutcome picks the final outcome of an attempt and the phase it
// failed in, if any.
func resolveOutcome(rep Report, st status) (record.Outcome, record.Phase) {
	if st.xfailStatus != "" {
		return st.xfailStatus, record.PhaseCall
	}
	for _, phase := range record.Phases {
		if o := st.phases[phase]; o.IsFailure() {
			return o, phase
		}
	}
	switch st.phases[record.PhaseCall] {
	case record.OutcomePassed:
		if rep.XFail {
			return record.OutcomeXPassed, ""
		}
		return record.OutcomePassed, ""
	case record.OutcomeSkipped:
		if rep.XFail {
			return record.OutcomeXFailed, ""
		}
		return record.OutcomeSkipped, ""
	}
	if rep.Outcome == record.OutcomeFailed {
		return rep.Outcome, rep.Phase
	}
	return rep.Outcome, ""
}

func (h *Handler) finalize(ctx context.Context, item *Item, rep Report, snap *snapshot) *record.Result {
	st := snap.status

	outcome, errorPhase := resolveOutcome(rep, st)
	if item.hasSoftFailures() {
		rep.LongRepr = softFailureText(item.SoftAssert.Failures())
		errorPhase = record.PhaseCall
		outcome = record.OutcomeFailed
		if st.xfailStatus != "" {
			outcome = st.xfailStatus
		}
	}

	res := h.builder.New(record.Test{
		NodeID:      item.NodeID,
		Description: item.Description,
		Markers:     item.Markers,
		Meta:        item.Meta,
		Line:        item.Line,
		Attempt:     st.attempt,
	}, outcome, screenshot.Describe(ctx, item.Page))
	res.ErrorPhase = errorPhase

	switch {
	case !snap.timing.start.IsZero():
		res.Timestamp = record.Seconds(snap.timing.start)
	case !rep.Start.IsZero():
		res.Timestamp = record.Seconds(rep.Start)
	}
	res.Duration = snap.timing.total.Seconds()
	res.PhaseDurations = snap.timing.phases

	if rep.Outcome == record.OutcomeSkipped {
		if rep.XFail {
			st.xfailStatus = record.OutcomeXFailed
			st.xfailReason, st.hasReason = rep.XFailReason, true
		} else {
			res.SkipReason = strings.TrimPrefix(rep.SkipReason, "Skipped: ")
		}
	}

	applyExpectedFailure(res, rep, st, outcome)

	if st.attempt <= h.maxReruns && outcome.IsFailure() {
		res.Outcome = record.OutcomeRerun
	}

	switch res.Outcome {
	case record.OutcomeFailed, record.OutcomeError, record.OutcomeXFailed, record.OutcomeRerun:
		h.attachError(ctx, item, rep, res)
	}

	res.Logs = collectLogs(item)
	res.CapLog, res.CapStderr, res.CapStdout = mergeCaptured(snap.reports)

	if item.CaseLink != "" {
		res.Metadata["case_link"] = item.CaseLink
	}
	if item.CaseID != "" {
		res.Metadata["case_id"] = item.CaseID
	}
	return res
}

// applyExpectedFailure aligns the outcome and metadata of tests marked as
// expected to fail.
func applyExpectedFailure(res *record.Result, rep Report, st status, outcome record.Outcome) {
	if !rep.XFail && !st.hasReason {
		return
	}
	if outcome != record.OutcomeXFailed && outcome != record.OutcomeXPassed && (rep.XFail || st.xfailStatus != "") {
		switch outcome {
		case record.OutcomePassed:
			res.Outcome = record.OutcomeXPassed
		case record.OutcomeFailed, record.OutcomeSkipped:
			res.Outcome = record.OutcomeXFailed
		}
	}

	reason := rep.XFailReason
	if st.hasReason {
		reason = st.xfailReason
	}
	res.WasXFail = reason

	if r, ok := res.Metadata["reason"]; ok {
		res.Metadata["xfail_reason"] = r
	} else if _, after, found := strings.Cut(reason, ": "); found {
		res.Metadata["xfail_reason"] = after
	} else {
		res.Metadata["xfail_reason"] = reason
	}
}

// attachError adds the screenshot, final URL and failure text to a
// failing record.
func (h *Handler) attachError(ctx context.Context, item *Item, rep Report, res *record.Result) {
	outcome := res.Outcome
	if outcome == record.OutcomeFailed && rep.Exception == ExceptionOther {
		res.Outcome = record.OutcomeError
	}

	if item.Page != nil && outcome != record.OutcomeRerun {
		h.capture(ctx, item.Page, res)
	}
	if item.Page != nil {
		if url, err := item.Page.URL(ctx); err == nil {
			res.Metadata["end_url"] = url
		} else {
			h.log.V(1).Info("could not read page url", "nodeid", res.NodeID, "error", err.Error())
		}
	}

	if rep.LongRepr != "" {
		res.Error = rep.LongRepr
	}
	res.ExceptionType = rep.CrashMessage
	if res.ExceptionType == "" {
		res.ExceptionType = rep.TypeName
	}
}

func (h *Handler) capture(ctx context.Context, page screenshot.Page, res *record.Result) {
	if !h.screenshots.Take() {
		h.log.Info("too many screenshots", "nodeid", res.NodeID, "taken", h.screenshots.Taken())
		return
	}
	img, err := page.Screenshot(ctx)
	if err != nil {
		h.screenshots.Release()
		res.Error = fmt.Sprintf("Failed to capture screenshot: %v", err)
		return
	}
	res.Screenshot = screenshot.Encode(img)
}

// collectLogs returns the user logs followed by the execution log.
func collectLogs(item *Item) []string {
	logs := slices.Clone(item.Logs)
	if logs == nil {
		logs = []string{}
	}
	entries := slices.Clone(item.ExecutionLog)
	slices.SortStableFunc(entries, func(a, b timing.Entry) int { return a.Start.Compare(b.Start) })
	for _, e := range entries {
		logs = append(logs, e.Text)
	}
	return logs
}

// mergeCaptured joins the captured log, stderr and stdout of every phase
// under per-phase headers. Chunks already seen in an earlier phase are
// skipped; empty results are returned as "".
func mergeCaptured(reports map[record.Phase]Report) (caplog, stderr, stdout string) {
	var logs, errs, outs capture
	for _, phase := range record.Phases {
		rep, ok := reports[phase]
		if !ok {
			continue
		}
		logs.add(phase, "logs", rep.CapLog)
		errs.add(phase, "stderr", rep.CapStderr)
		outs.add(phase, "stdout", rep.CapStdout)
	}
	return logs.String(), errs.String(), outs.String()
}

type capture struct {
	b    strings.Builder
	seen map[string]bool
}

func (c *capture) add(phase record.Phase, label, chunk string) {
	if strings.TrimSpace(chunk) == "" || c.seen[chunk] {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.b.Len() > 0 {
		c.b.WriteString("\n")
	}
	fmt.Fprintf(&c.b, "--- %s phase %s ---\n", phase, label)
	c.b.WriteString(chunk)
	c.seen[chunk] = true
}

func (c *capture) String() string {
	if strings.TrimSpace(c.b.String()) == "" {
		return ""
	}
	return c.b.String()
}
