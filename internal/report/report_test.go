package report

import (
	"context"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/store"
)

func sample(nodeID string, outcome record.Outcome, ts float64, worker string) *record.Result {
	return &record.Result{
		Timestamp:      ts,
		NodeID:         nodeID,
		Outcome:        outcome,
		Duration:       2,
		PhaseDurations: record.PhaseDurations{Setup: 0.5, Call: 1.25, Teardown: 0.25},
		Description:    "Adds **one** item <b>raw</b>",
		Markers:        []string{"smoke"},
		Metadata:       map[string]any{"case_title": "Add to cart"},
		Environment:    map[string]string{"go_version": "go1.25.5", "platform": "linux-amd64", "browser": "Chrome"},
		Logs:           []string{"function - open_catalog: 1.2000 seconds"},
		WorkerID:       worker,
		Phase:          record.PhaseCall,
		ExecutionCount: 1,
	}
}

func writeResults(t *testing.T, dir string, results ...*record.Result) {
	t.Helper()
	for _, r := range results {
		require.NoError(t, store.NewWriter(dir, r.WorkerID).Write(context.Background(), r))
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 10, 30, 0, 0, time.Local)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	failed := sample("tests/cart_test.go::TestRemove", record.OutcomeFailed, 1712050210, "gw1")
	failed.Error = "expected 1 item, got 0"
	failed.ErrorPhase = record.PhaseCall
	failed.ExceptionType = "AssertionError"
	failed.Screenshot = "aGVsbG8="
	writeResults(t, dir,
		sample("tests/cart_test.go::TestAdd", record.OutcomePassed, 1712050200, "gw0"),
		failed,
	)
	out := filepath.Join(dir, "html", "report.html")

	rep, err := Generate(context.Background(), Options{
		ResultsDir: dir,
		Output:     out,
		Title:      "Nightly <E2E>",
		JobID:      "4711",
		JobURL:     "https://ci.example.com/jobs/4711",
		Now:        fixedNow,
	})
	require.NoError(t, err)
	assert.True(t, rep.Rendered)
	assert.Equal(t, 2, rep.Stats.Total)
	assert.Equal(t, 50.0, rep.Stats.SuccessRate)
	assert.Len(t, rep.Results, 2)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "<title>Nightly &lt;E2E&gt;</title>")
	assert.Contains(t, page, "Generated at 2026-03-04 10:30:00")
	assert.Contains(t, page, `href="https://ci.example.com/jobs/4711"`)
	assert.Contains(t, page, "#4711")
	assert.Contains(t, page, "Test Run Analysis")
	assert.Contains(t, page, "Adds <strong>one</strong> item")
	assert.NotContains(t, page, "<b>raw</b>")
	assert.Contains(t, page, "expected 1 item, got 0")
	assert.Contains(t, page, "Error in call (AssertionError)")
	assert.Contains(t, page, `src="data:image/jpeg;base64,aGVsbG8="`)
	assert.Contains(t, page, "linux-amd64")
	assert.Contains(t, page, "DecompressionStream")

	var tests []*record.Result
	require.NoError(t, Decompress(payload(t, page, "data-tests"), &tests))
	require.Len(t, tests, 2)
	assert.NotEmpty(t, tests[0].FormattedTimestamp)

	var timeline []TimelineEntry
	require.NoError(t, Decompress(payload(t, page, "data-timeline"), &timeline))
	require.Len(t, timeline, 2)
	assert.Equal(t, "Add to cart", timeline[0].Metadata.CaseTitle)
}

func payload(t *testing.T, page, attr string) string {
	t.Helper()
	m := regexp.MustCompile(attr + `="([^"]*)"`).FindStringSubmatch(page)
	require.NotNil(t, m, "attribute %s not found", attr)
	return html.UnescapeString(m[1])
}

func TestGenerate_NoResults(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.html")

	rep, err := Generate(context.Background(), Options{ResultsDir: dir, Output: out})
	require.NoError(t, err)
	assert.False(t, rep.Rendered)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, NoResultsPage, string(data))
}

func TestGenerate_MissingResultsDir(t *testing.T) {
	_, err := Generate(context.Background(), Options{
		ResultsDir: filepath.Join(t.TempDir(), "missing"),
		Output:     filepath.Join(t.TempDir(), "report.html"),
	})
	require.Error(t, err)
}

func TestGenerate_WorkerIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, sample("a_test.go::TestA", record.OutcomePassed, 1, "gw0"))
	out := filepath.Join(dir, "report.html")

	rep, err := Generate(context.Background(), Options{ResultsDir: dir, Output: out, Worker: true})
	require.NoError(t, err)
	assert.False(t, rep.Rendered)
	assert.NoFileExists(t, out)
}

func TestGenerate_TemplateError(t *testing.T) {
	dir := t.TempDir()
	writeResults(t, dir, sample("a_test.go::TestA", record.OutcomePassed, 1, "gw0"))
	out := filepath.Join(dir, "report.html")

	_, err := Generate(context.Background(), Options{ResultsDir: dir, Output: out, template: "{{.Missing}}"})
	require.Error(t, err)

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	page := string(data)
	assert.True(t, strings.HasPrefix(page, "<html><body><h1>Error Generating Report</h1><p>Template error when generating report: "))
	assert.Contains(t, page, "Missing")
}

func TestGenerate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, Options{ResultsDir: t.TempDir(), Output: filepath.Join(t.TempDir(), "r.html")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompressRoundTrip(t *testing.T) {
	in := map[string]any{"nodeid": "a::b", "count": float64(3)}
	s, err := Compress(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, Decompress(s, &out))
	assert.Equal(t, in, out)
}

func TestTimeline_DefaultsWorker(t *testing.T) {
	r := sample("a::b", record.OutcomePassed, 1, "")
	r.Metadata = map[string]any{}

	got := Timeline([]*record.Result{r})
	require.Len(t, got, 1)
	assert.Equal(t, record.DefaultWorkerID, got[0].WorkerID)
	assert.Equal(t, "", got[0].Metadata.CaseTitle)
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"emphasis", "*checks* cart", "<p><em>checks</em> cart</p>\n"},
		{"raw html dropped", "<script>x</script>", "<!-- raw HTML omitted -->\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Markdown(tt.in)); got != tt.want {
				t.Errorf("Markdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadToolInfo(t *testing.T) {
	info := ReadToolInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotNil(t, info.Packages)
}
