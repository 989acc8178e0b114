package record

import (
	"encoding/json"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutPage struct{}

func TestGitHubLink(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		nodeID string
		line   int
		want   string
	}{
		{
			name:   "file and line",
			base:   "https://github.com/Goraved/aqareport/blob/master",
			nodeID: "tests/shop_test.go::TestCheckout",
			line:   42,
			want:   "https://github.com/Goraved/aqareport/blob/master/tests/shop_test.go#L42",
		},
		{
			name:   "trailing slash in base",
			base:   "https://github.com/Goraved/aqareport/blob/master/",
			nodeID: "tests/shop_test.go::TestCheckout[guest]",
			line:   7,
			want:   "https://github.com/Goraved/aqareport/blob/master/tests/shop_test.go#L7",
		},
		{
			name:   "unknown line defaults to 1",
			base:   "https://example.com/src",
			nodeID: "login_test.go::TestLogin",
			want:   "https://example.com/src/login_test.go#L1",
		},
		{
			name:   "no base",
			nodeID: "login_test.go::TestLogin",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GitHubLink(tt.base, tt.nodeID, tt.line))
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	meta := map[string]any{
		"case_title": "Checkout as guest",
		"priority":   2,
		"page":       reflect.TypeOf(checkoutPage{}),
	}

	got := ExtractMetadata(meta)

	assert.Equal(t, "Checkout as guest", got["case_title"])
	assert.Equal(t, 2, got["priority"])
	assert.Equal(t, "checkoutPage", got["page"])
	assert.NotNil(t, ExtractMetadata(nil))
}

func TestEnvironment(t *testing.T) {
	env := Environment(nil)
	assert.Equal(t, runtime.Version(), env["go_version"])
	assert.NotContains(t, env, "browser")

	env = Environment(&BrowserInfo{Name: "chromium", Version: "120.0.6099.28"})
	assert.Equal(t, "Chromium", env["browser"])
	assert.Equal(t, "120.0.6099.28", env["browser_version"])

	env = Environment(&UnknownBrowser)
	assert.Equal(t, "Unknown", env["browser"])
	assert.Equal(t, "Unknown", env["browser_version"])
}

func TestBuilderNew(t *testing.T) {
	b := NewBuilder("", "https://github.com/Goraved/aqareport/blob/master")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	res := b.New(Test{
		NodeID:      "tests/shop_test.go::TestCart",
		Description: "Adds an item to the cart",
		Line:        10,
	}, OutcomePassed, nil)

	assert.Equal(t, DefaultWorkerID, res.WorkerID)
	assert.Equal(t, Seconds(fixed), res.Timestamp)
	assert.Equal(t, 1, res.ExecutionCount)
	assert.Equal(t, PhaseCall, res.Phase)
	assert.Equal(t, []string{}, res.Markers)
	assert.Equal(t, []string{}, res.Logs)
	assert.Equal(t, "https://github.com/Goraved/aqareport/blob/master/tests/shop_test.go#L10", res.GitHubLink)
}

func TestResultJSONFieldNames(t *testing.T) {
	res := &Result{
		Timestamp:  1700000000.5,
		NodeID:     "tests/shop_test.go::TestCart",
		Outcome:    OutcomeXFailed,
		WasXFail:   "reason: known bug",
		ErrorPhase: PhaseCall,
		Markers:    []string{"smoke"},
		Logs:       []string{},
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"timestamp", "nodeid", "outcome", "duration", "phase_durations", "wasxfail", "error_phase", "execution_count", "worker_id"} {
		assert.Contains(t, raw, key)
	}
	assert.True(t, res.WasExpectedToFail())
}

func TestResultJSONEmptyOptionalFieldsAreNull(t *testing.T) {
	res := &Result{NodeID: "tests/shop_test.go::TestCart", Outcome: OutcomePassed, CapStdout: "hello"}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"screenshot", "error", "wasxfail", "skip_reason", "error_phase", "caplog", "capstderr"} {
		v, ok := raw[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
	assert.Equal(t, "hello", raw["capstdout"])
	assert.NotContains(t, raw, "formatted_timestamp")
	assert.Contains(t, string(data), `"screenshot":null`)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *res, back)
}

func TestSecondsRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 250_000_000, time.UTC)
	assert.InDelta(t, 0, FromSeconds(Seconds(ts)).Sub(ts).Seconds(), 1e-6)
}

func TestPhaseDurationsSet(t *testing.T) {
	var d PhaseDurations
	d.Set(PhaseSetup, 0.5)
	d.Set(PhaseCall, 1.25)
	d.Set(PhaseTeardown, 0.1)
	assert.Equal(t, PhaseDurations{Setup: 0.5, Call: 1.25, Teardown: 0.1}, d)
}
