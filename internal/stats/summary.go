package stats

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/Goraved/aqareport/internal/record"
)

// DefaultSlowTestSeconds is the duration above which a test is slow.
const DefaultSlowTestSeconds = 120.0

// Category groups slow tests whose lower-cased node ID contains any of
// the Match substrings.
type Category struct {
	Name  string
	Match []string
}

// DefaultCategories is used when no categories are configured.
var DefaultCategories = []Category{
	{Name: "API Tests", Match: []string{"api"}},
	{Name: "DB Tests", Match: []string{"db"}},
	{Name: "UI Tests", Match: []string{"ui", "page"}},
}

// SummaryOptions tunes Summary.
type SummaryOptions struct {
	SlowTestSeconds float64
	Categories      []Category
}

// NoResultsAlert is the summary of a run without records.
const NoResultsAlert = "<b>ALERT: No Test Results Found!</b><br>" +
	"Critical issue detected &ndash; test results are missing. This could be due to execution failures, " +
	"wrong report location, or system issues. <b>Investigation needed immediately!</b>"

// Assessment returns the headline message for a pass rate in percent.
func Assessment(passRate float64) string {
	switch {
	case passRate == 100:
		return "Complete Success: Every single test passed successfully. Excellent work!"
	case passRate >= 95:
		return "Outstanding Result: The vast majority of tests passed successfully!"
	case passRate >= 90:
		return "Very Good Result: High pass rate with just a few issues to address."
	case passRate >= 80:
		return "Good Result: Decent pass rate, though improvements are needed."
	case passRate >= 60:
		return "Attention Required: Multiple test failures detected; investigation needed."
	default:
		return "Critical Situation: Very low pass rate; requires immediate investigation!"
	}
}

// Summary renders an HTML analysis of a run. Node IDs and step names are
// escaped; the surrounding markup is trusted.
func Summary(results []*record.Result, s Stats, opts SummaryOptions) string {
	if len(results) == 0 {
		return NoResultsAlert
	}
	if opts.SlowTestSeconds <= 0 {
		opts.SlowTestSeconds = DefaultSlowTestSeconds
	}
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultCategories
	}

	total := float64(s.Total)
	pct := func(n int) float64 {
		if s.Total == 0 {
			return 0
		}
		return float64(n) / total * 100
	}
	passRate := pct(s.Passed)
	runtime := FormatDuration(s.TotalDuration)

	var slow, reruns []*record.Result
	for _, r := range results {
		if r.Duration > opts.SlowTestSeconds {
			slow = append(slow, r)
		}
		if r.Outcome == record.OutcomeRerun {
			reruns = append(reruns, r)
		}
	}
	minutes := opts.SlowTestSeconds / 60

	var b strings.Builder
	b.WriteString("<h4><b>Test Run Analysis</b></h4><br>")
	b.WriteString(Assessment(passRate) + "<br>")
	b.WriteString("<b>Test Run Summary</b><br>")
	fmt.Fprintf(&b, "- <b>Tests Executed:</b> %d tests were run in this session<br>", s.Total)
	fmt.Fprintf(&b, "- <b>Pass Rate:</b> %.1f%% &ndash; Our key quality metric<br>", passRate)
	fmt.Fprintf(&b, "- <b>Duration:</b> %s &ndash; Total execution time<br>", runtime)
	fmt.Fprintf(&b, "- <b>Main Issues:</b> %d failures, %d errors, %d reruns, %d slow tests. Priority items to address.",
		s.Failed, s.Error, s.Rerun, len(slow))
	b.WriteString("<hr>")

	b.WriteString("<h5><b>1. Execution Details:</b></h5>")
	fmt.Fprintf(&b, "- Start Time: %s<br>", FormatTimestamp(s.StartTime))
	fmt.Fprintf(&b, "- End Time: %s<br>", FormatTimestamp(s.EndTime))
	fmt.Fprintf(&b, "- Total Duration: %s<br>", runtime)

	b.WriteString("<br><h5><b>2. Test Result Details:</b></h5>")
	if s.Failed+s.Error+s.XFailed == 0 && s.Passed == s.Total {
		b.WriteString("<b>Perfect Score: All Tests Passed!</b><br>" +
			"Flawless execution! A rare achievement to celebrate, but stay vigilant and keep improving!")
	} else {
		lines := []string{
			"<b>Test Status Breakdown:</b>",
			fmt.Sprintf("  <b>%d Passed Tests (%.1f%%):</b> The foundation of our test coverage. Continue to maintain and expand.", s.Passed, passRate),
			fmt.Sprintf("  <b>%d Failed Tests (%.1f%%):</b> Highest priority issues &ndash; each failure represents an area for improvement.", s.Failed, pct(s.Failed)),
			fmt.Sprintf("  <b>%d Errors (%.1f%%):</b> Need assessment. Focus on environment issues and test setup problems.", s.Error, pct(s.Error)),
			fmt.Sprintf("  <b>%d Rerun Tests (%.1f%%):</b> Reruns often indicate intermittent issues. Important to analyze patterns.", s.Rerun, pct(s.Rerun)),
			fmt.Sprintf("  <b>%d Skipped Tests (%.1f%%):</b> Evaluate skipped tests. Are we missing important validations?", s.Skipped, pct(s.Skipped)),
			fmt.Sprintf("  <b>%d Expected Failures (%.1f%%):</b> Known issues to prioritize for future fixes.", s.XFailed, pct(s.XFailed)),
			fmt.Sprintf("  <b>%d Unexpected Passes (%.1f%%):</b> Surprising results &ndash; verify if these represent genuine improvements.", s.XPassed, pct(s.XPassed)),
		}
		if s.Failed+s.Error+s.Rerun > 0 {
			lines = append(lines, "<br><b>Priority Actions:</b> Focus on fixing failures, errors, and tests needing reruns. "+
				"These represent our main quality blockers.")
		}
		b.WriteString(strings.Join(lines, "<br>"))
	}
	b.WriteString("<br>")

	fastest, slowest := durationExtremes(results)
	b.WriteString("<br><h5><b>3. Performance Analysis:</b></h5>")
	fmt.Fprintf(&b, "- <b>Slow Test Analysis:</b> %d tests (%.1f%%) exceeded %.0f minutes runtime.<br>", len(slow), pct(len(slow)), minutes)
	fmt.Fprintf(&b, "- <b>Fastest Test:</b> <code>%s</code> &ndash; completed in only %.2f seconds!<br>",
		html.EscapeString(fastest.NodeID), fastest.Duration)
	fmt.Fprintf(&b, "- <b>Slowest Test:</b> <code>%s</code> &ndash; required %.2f seconds. Consider optimizing this test!<br>",
		html.EscapeString(slowest.NodeID), slowest.Duration)
	b.WriteString("- " + slowTestsSection(slow, opts.Categories, minutes) + "<br>")
	b.WriteString("- " + slowFunctionsSection(s.SlowFunctions) + "<br>")

	b.WriteString("<br><h5><b>4. Rerun Analysis:</b></h5><br>")
	b.WriteString("- " + rerunSection(results, reruns, total) + "<br>")
	return b.String()
}

func durationExtremes(results []*record.Result) (fastest, slowest *record.Result) {
	sorted := make([]*record.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Duration < sorted[j].Duration })
	return sorted[0], sorted[len(sorted)-1]
}

func slowTestsSection(slow []*record.Result, categories []Category, minutes float64) string {
	if len(slow) == 0 {
		return "<b>Performance Excellence!</b> All tests completed within acceptable time limits!"
	}
	lines := []string{fmt.Sprintf("<b>%d Slow Tests Identified (&gt;%.0f min):</b> Performance improvements needed!", len(slow), minutes)}
	for _, c := range categories {
		matched := matchCategory(slow, c)
		if len(matched) == 0 {
			continue
		}
		example := matched[0].NodeID
		if i := strings.LastIndex(example, "::"); i >= 0 {
			example = example[i+2:]
		}
		lines = append(lines, fmt.Sprintf("  &ndash; <b>%s:</b> %d slow tests found (e.g., <code>%s</code>...). Potential area for optimization.",
			html.EscapeString(c.Name), len(matched), html.EscapeString(example)))
	}
	lines = append(lines, "<br><b>Performance Improvement Strategies:</b><br>"+
		"&ndash; <b>Profiling:</b> Identify performance bottlenecks through detailed timing analysis<br>"+
		"&ndash; <b>Parallelization:</b> Implement concurrent execution where possible<br>"+
		"&ndash; <b>Mock Objects:</b> Replace slow dependencies with faster test doubles<br>"+
		"&ndash; <b>Code Optimization:</b> Eliminate redundant code and improve algorithmic efficiency<br>"+
		"&ndash; <b>Environment Tuning:</b> Optimize test environment and data for better performance")
	return strings.Join(lines, "<br>")
}

func matchCategory(results []*record.Result, c Category) []*record.Result {
	var out []*record.Result
	for _, r := range results {
		id := strings.ToLower(r.NodeID)
		for _, m := range c.Match {
			if m != "" && strings.Contains(id, strings.ToLower(m)) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func slowFunctionsSection(funcs []SlowFunction) string {
	if len(funcs) == 0 {
		return "<b>Method Performance Analysis:</b> No consistently slow functions identified across tests."
	}
	lines := []string{"<br><b>Slow Methods Analysis:</b> Functions consistently taking too long across tests:"}
	for _, f := range funcs {
		lines = append(lines, fmt.Sprintf("  &ndash; <code>%s</code>: slow in <b>%d</b> test(s). Optimization candidate!",
			html.EscapeString(f.Name), f.Count))
	}
	lines = append(lines, "<br><b>Method Optimization Recommendations:</b><br>"+
		"&ndash; <b>Logic Review:</b> Check for redundant code or inefficient algorithms<br>"+
		"&ndash; <b>Wait Logic:</b> Optimize explicit waits and timeout conditions<br>"+
		"&ndash; <b>Implement Caching:</b> Store results of expensive operations<br>"+
		"&ndash; <b>Parallel Execution:</b> Consider running operations concurrently when possible")
	return strings.Join(lines, "<br>")
}

func rerunSection(results, reruns []*record.Result, total float64) string {
	if len(reruns) == 0 {
		return "<b>First-Time Success!</b> No tests required reruns - all passed on their initial execution!"
	}

	attempts := make(map[string]int)
	for _, r := range results {
		if r.ExecutionCount > attempts[r.NodeID] {
			attempts[r.NodeID] = r.ExecutionCount
		}
	}
	worst := reruns[0].NodeID
	for _, r := range reruns[1:] {
		if attempts[r.NodeID] > attempts[worst] {
			worst = r.NodeID
		}
	}

	lines := []string{
		fmt.Sprintf("<b>Rerun Summary:</b> %d tests required reruns during this execution.", len(reruns)),
		"<br><b>Rerun Details:</b>",
		fmt.Sprintf("  &ndash; <b>Rerun Percentage:</b> %.1f%% of tests needed multiple attempts.", float64(len(reruns))/total*100),
		fmt.Sprintf("  &ndash; <b>Maximum Attempts:</b> Most challenging test, <code>%s</code>, required %d attempts.<br>",
			html.EscapeString(worst), attempts[worst]),
		"<b>Addressing Flaky Tests:</b>",
		"  &ndash; Common causes include network instability, timing issues, or intermittent service problems.",
		"  &ndash; Fix strategies: improve wait mechanisms, enhance synchronization, and ensure stable test environments.",
	}
	return strings.Join(lines, "<br>")
}
