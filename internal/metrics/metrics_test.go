package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
)

func sampleResults() []*record.Result {
	return []*record.Result{
		{NodeID: "a::one", Outcome: record.OutcomePassed, Duration: 1.5},
		{NodeID: "a::two", Outcome: record.OutcomePassed, Duration: 0.2},
		{NodeID: "a::three", Outcome: record.OutcomeFailed, Duration: 42},
	}
}

func TestObserveRun(t *testing.T) {
	c := NewCollector(RunInfo{RunID: "r-1", Suite: "e2e", JobID: "77"})
	results := sampleResults()
	c.ObserveRun(results, stats.Calculate(results))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.testsTotal.WithLabelValues("e2e", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.testsTotal.WithLabelValues("e2e", "failed")))
	assert.Equal(t, 66.67, testutil.ToFloat64(c.successRate.WithLabelValues("e2e")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runInfo.WithLabelValues("e2e", "r-1", "77")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.testDuration))
}

func TestWrite(t *testing.T) {
	c := NewCollector(RunInfo{RunID: "r-1", Suite: "e2e"})
	results := sampleResults()
	c.ObserveRun(results, stats.Calculate(results))

	path := filepath.Join(t.TempDir(), "textfile", "aqa.prom")
	require.NoError(t, c.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE aqa_tests_total counter")
	assert.Contains(t, text, `aqa_tests_total{outcome="failed",suite="e2e"} 1`)
	assert.Contains(t, text, `aqa_test_duration_seconds_bucket{outcome="failed",suite="e2e",le="60"} 1`)
	assert.Contains(t, text, `aqa_run_info{job_id="",run_id="r-1",suite="e2e"} 1`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".metrics-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}
