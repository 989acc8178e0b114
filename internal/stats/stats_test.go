package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goraved/aqareport/internal/record"
)

func res(nodeID string, outcome record.Outcome, ts, duration float64) *record.Result {
	return &record.Result{NodeID: nodeID, Outcome: outcome, Timestamp: ts, Duration: duration, ExecutionCount: 1}
}

func TestCalculate_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, Calculate(nil))
}

func TestCalculate(t *testing.T) {
	results := []*record.Result{
		res("a", record.OutcomePassed, 100, 5),
		res("b", record.OutcomeFailed, 90, 2),
		res("c", record.OutcomePassed, 101, 30),
		res("d", record.OutcomeRerun, 95, 1),
		res("e", record.OutcomeSkipped, 99, 0),
		res("f", record.OutcomeXFailed, 99, 0),
	}

	s := Calculate(results)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Rerun)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.XFailed)
	assert.Equal(t, 90.0, s.StartTime)
	assert.Equal(t, 131.0, s.EndTime)
	assert.Equal(t, 41.0, s.TotalDuration)
	assert.Equal(t, 33.33, s.SuccessRate)
	assert.True(t, s.HasFailures())
	assert.Equal(t, 2, s.Count(record.OutcomePassed))
	assert.Equal(t, 0, s.Count(record.Outcome("unknown")))
}

func TestCalculate_CountsSumToTotal(t *testing.T) {
	var results []*record.Result
	for i, o := range record.Outcomes {
		results = append(results, res("t", o, float64(i), 1))
	}
	s := Calculate(results)

	sum := 0
	for _, o := range record.Outcomes {
		sum += s.Count(o)
	}
	assert.Equal(t, s.Total, sum)
	assert.Equal(t, 14.29, s.SuccessRate)
}

func TestSlowFunctions(t *testing.T) {
	logs := func(lines ...string) *record.Result {
		return &record.Result{Logs: lines}
	}
	results := []*record.Result{
		logs("function - open_catalog: 12.5000 seconds", "fixture - login: 11.0000 seconds"),
		logs("  function - open_catalog: 15.0000 seconds", "fixture - login: 10.0000 seconds"),
		logs("function - open_catalog: 30.1 seconds", "fixture - login: 20.5 seconds"),
		logs("fixture - login: 10.5 seconds", "fixture - login: 40 seconds"),
		logs("function - checkout: 50 seconds", "function - checkout: 51 seconds"),
		logs("a: b: 99 seconds", "no separator 99", "function - x: no number"),
	}

	got := SlowFunctions(results, DefaultSlowStepSeconds, DefaultSlowStepMinCount)

	want := []SlowFunction{
		{Name: "fixture - login", Count: 4},
		{Name: "function - open_catalog", Count: 3},
	}
	assert.Equal(t, want, got)
}

func TestSlowFunctions_None(t *testing.T) {
	assert.Empty(t, SlowFunctions(nil, 10, 3))
	assert.Empty(t, SlowFunctions([]*record.Result{{Logs: []string{"step: 1 seconds"}}}, 10, 3))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59.4, "00:00:59"},
		{61, "00:01:01"},
		{3725, "01:02:05"},
		{100 * 3600, "100:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	got := FormatTimestamp(0)
	assert.Len(t, got, len("2006-01-02 15:04:05"))
	assert.Equal(t, record.FromSeconds(1712050200).Local().Format("2006-01-02 15:04:05"), FormatTimestamp(1712050200))
}

func TestAssessment(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{100, "Complete Success"},
		{99.9, "Outstanding Result"},
		{95, "Outstanding Result"},
		{90, "Very Good Result"},
		{80, "Good Result"},
		{60, "Attention Required"},
		{59.99, "Critical Situation"},
		{0, "Critical Situation"},
	}
	for _, tt := range tests {
		if got := Assessment(tt.rate); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Assessment(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}

func TestSummary_Empty(t *testing.T) {
	assert.Equal(t, NoResultsAlert, Summary(nil, Stats{}, SummaryOptions{}))
}

func TestSummary_AllPassed(t *testing.T) {
	results := []*record.Result{
		res("cart_test.go::TestAdd", record.OutcomePassed, 100, 1),
		res("cart_test.go::TestRemove", record.OutcomePassed, 101, 2),
	}
	got := Summary(results, Calculate(results), SummaryOptions{})

	assert.Contains(t, got, "Complete Success")
	assert.Contains(t, got, "Perfect Score")
	assert.Contains(t, got, "<code>cart_test.go::TestAdd</code> &ndash; completed in only 1.00 seconds")
	assert.Contains(t, got, "<code>cart_test.go::TestRemove</code> &ndash; required 2.00 seconds")
	assert.Contains(t, got, "0 tests (0.0%) exceeded 2 minutes runtime")
	assert.Contains(t, got, "Performance Excellence!")
	assert.Contains(t, got, "No consistently slow functions")
	assert.Contains(t, got, "First-Time Success!")
	assert.NotContains(t, got, "Priority Actions")
}

func TestSummary_FailuresSlowTestsAndReruns(t *testing.T) {
	flakyFirst := res("api/orders_test.go::TestCreate", record.OutcomeRerun, 100, 200)
	flakySecond := res("api/orders_test.go::TestCreate", record.OutcomeRerun, 300, 10)
	flakySecond.ExecutionCount = 2
	flakyLast := res("api/orders_test.go::TestCreate", record.OutcomePassed, 320, 10)
	flakyLast.ExecutionCount = 3
	results := []*record.Result{
		flakyFirst, flakySecond, flakyLast,
		res("ui/checkout_test.go::TestPay<script>", record.OutcomeFailed, 110, 150),
	}
	s := Calculate(results)
	s.SlowFunctions = []SlowFunction{{Name: "function - open_catalog", Count: 5}}

	got := Summary(results, s, SummaryOptions{
		SlowTestSeconds: 120,
		Categories:      []Category{{Name: "API Tests", Match: []string{"API"}}, {Name: "Payments", Match: []string{"pay"}}},
	})

	assert.Contains(t, got, "Critical Situation")
	assert.Contains(t, got, "<b>1 Failed Tests (25.0%):</b>")
	assert.Contains(t, got, "<b>2 Rerun Tests (50.0%):</b>")
	assert.Contains(t, got, "Priority Actions")
	assert.Contains(t, got, "2 tests (50.0%) exceeded 2 minutes runtime")
	assert.Contains(t, got, "<b>API Tests:</b> 1 slow tests found (e.g., <code>TestCreate</code>...)")
	assert.Contains(t, got, "<b>Payments:</b> 1 slow tests found (e.g., <code>TestPay&lt;script&gt;</code>...)")
	assert.Contains(t, got, "<code>function - open_catalog</code>: slow in <b>5</b> test(s)")
	assert.Contains(t, got, "2 tests required reruns")
	assert.Contains(t, got, "<code>api/orders_test.go::TestCreate</code>, required 3 attempts")
	assert.NotContains(t, got, "<script>")
}

func TestSummary_DefaultsApplied(t *testing.T) {
	results := []*record.Result{res("db/users_test.go::TestMigrate", record.OutcomePassed, 1, 130)}
	got := Summary(results, Calculate(results), SummaryOptions{})

	require.Contains(t, got, "1 Slow Tests Identified (&gt;2 min)")
	assert.Contains(t, got, "<b>DB Tests:</b> 1 slow tests found")
}
