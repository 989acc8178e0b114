package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
	"github.com/Goraved/aqareport/internal/store"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print a summary of the aggregated results",
		Long: `Aggregates the worker files in the results directory and prints the
outcome counts and the failed tests with their failure reasons. Exits with
code 1 when a test failed or errored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := store.Aggregate(a.cfg.Results.Dir)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return aqaerrors.NotFound("test results in", a.cfg.Results.Dir)
			}
			if printSummary(a, results) {
				return &exitCodeError{code: 1}
			}
			return nil
		},
	}
}

func printSummaryIf(a *app, enabled bool, results []*record.Result) bool {
	if !enabled {
		return stats.Calculate(results).HasFailures()
	}
	return printSummary(a, results)
}

// printSummary prints the outcome counts and failed tests. It reports
// whether any test failed or errored.
func printSummary(a *app, results []*record.Result) bool {
	out := a.out
	s := stats.Calculate(results)

	out.SummaryHeader("Test Summary")
	out.SummaryPassed("Passed", fmt.Sprintf("%d", s.Passed))
	if s.Failed > 0 {
		out.SummaryFailed("Failed", fmt.Sprintf("%d", s.Failed))
	}
	if s.Error > 0 {
		out.SummaryFailed("Errors", fmt.Sprintf("%d", s.Error))
	}
	for _, c := range []struct {
		label string
		n     int
	}{
		{"Skipped", s.Skipped},
		{"Expected failures", s.XFailed},
		{"Unexpected passes", s.XPassed},
		{"Reruns", s.Rerun},
	} {
		if c.n > 0 {
			out.SummaryItem(c.label, fmt.Sprintf("%d", c.n))
		}
	}
	out.SummaryItem("Total", fmt.Sprintf("%d", s.Total))
	out.SummaryItem("Duration", stats.FormatDuration(s.TotalDuration))
	out.SummaryItem("Success rate", fmt.Sprintf("%.2f%%", s.SuccessRate))

	var failed []*record.Result
	for _, r := range results {
		if r.Outcome == record.OutcomeFailed || r.Outcome == record.OutcomeError {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		out.Println("")
		out.SummarySectionLabel("Failed Tests:")
		for _, r := range failed {
			out.SummaryFailed("  "+r.NodeID, failureReason(r))
		}
	}

	if !s.HasFailures() {
		out.FinalSuccess("All %d tests passed.", s.Passed)
		return false
	}
	out.FinalFailure("%d of %d tests failed.", s.Failed+s.Error, s.Total)
	return true
}

// failureReason returns a one-line reason for a failed record.
func failureReason(r *record.Result) string {
	for _, text := range []string{r.ExceptionType, r.Error} {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return string(r.Outcome)
}
