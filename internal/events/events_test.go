package events

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/record"
)

func newDecoder(t *testing.T) (*Decoder, *[]*record.Result) {
	t.Helper()
	var written []*record.Result
	h, err := lifecycle.New(lifecycle.Options{
		Sink: lifecycle.SinkFunc(func(_ context.Context, r *record.Result) error {
			written = append(written, r)
			return nil
		}),
		MaxReruns: 1,
	})
	require.NoError(t, err)
	return NewDecoder(h, logr.Discard()), &written
}

func TestDecode_FullAttempt(t *testing.T) {
	d, written := newDecoder(t)
	img := base64.StdEncoding.EncodeToString([]byte("jpeg"))
	input := `{"item": {"nodeid": "tests/cart.spec.ts::adds item", "attempt": 2, "markers": ["smoke"], "case_link": "https://tms.example.com/case/7", "logs": ["user step"], "execution_log": [{"start": "2024-04-02T10:00:00Z", "text": "function - open_catalog: 1.0000 seconds"}]}, "report": {"phase": "setup", "outcome": "passed", "start": "2024-04-02T10:00:00Z", "duration": 0.5}}

{"item": {"nodeid": "tests/cart.spec.ts::adds item", "attempt": 2, "page": {"url": "https://shop.example.com/cart", "screenshot": "` + img + `", "browser_name": "chromium", "browser_version": "120.0"}}, "report": {"phase": "call", "outcome": "failed", "start": "2024-04-02T10:00:00.5Z", "duration": 1.5, "exception": "assertion", "longrepr": "expected 1 item, got 0", "crash_message": "AssertionError: expected 1 item"}}
{"item": {"nodeid": "tests/cart.spec.ts::adds item", "attempt": 2}, "report": {"phase": "teardown", "outcome": "passed", "start": "2024-04-02T10:00:02Z", "duration": 0.25}}
`
	results, err := d.Decode(context.Background(), "events.jsonl", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, results, *written)

	r := results[0]
	assert.Equal(t, record.OutcomeFailed, r.Outcome)
	assert.Equal(t, 2, r.ExecutionCount)
	assert.Equal(t, "expected 1 item, got 0", r.Error)
	assert.Equal(t, "AssertionError: expected 1 item", r.ExceptionType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg")), r.Screenshot)
	assert.Equal(t, "https://shop.example.com/cart", r.Metadata["end_url"])
	assert.Equal(t, "Chromium", r.Environment["browser"])
	assert.InDelta(t, 2.0, r.Duration, 1e-9)
}

func TestDecode_SoftFailures(t *testing.T) {
	d, _ := newDecoder(t)
	input := `{"item": {"nodeid": "a::b"}, "report": {"phase": "setup", "outcome": "passed"}}
{"item": {"nodeid": "a::b", "soft_failures": ["1. Line: 10. \nprice mismatch "]}, "report": {"phase": "call", "outcome": "passed"}}
`
	results, err := d.Decode(context.Background(), "events", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, record.OutcomeRerun, results[0].Outcome)
	assert.Contains(t, results[0].Error, "Soft assert failures (1)")
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed JSON", `{"item": `, "invalid JSON"},
		{"missing nodeid", `{"item": {}, "report": {"phase": "call", "outcome": "passed"}}`, "NodeID"},
		{"unknown phase", `{"item": {"nodeid": "a"}, "report": {"phase": "run", "outcome": "passed"}}`, "Phase"},
		{"unknown outcome", `{"item": {"nodeid": "a"}, "report": {"phase": "call", "outcome": "error"}}`, "Outcome"},
		{"negative duration", `{"item": {"nodeid": "a"}, "report": {"phase": "call", "outcome": "passed", "duration": -1}}`, "Duration"},
		{"bad case link", `{"item": {"nodeid": "a", "case_link": "not a url"}, "report": {"phase": "call", "outcome": "passed"}}`, "CaseLink"},
		{"bad screenshot", `{"item": {"nodeid": "a", "page": {"screenshot": "***"}}, "report": {"phase": "call", "outcome": "passed"}}`, "Screenshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDecoder(t)
			_, err := d.Decode(context.Background(), "events.jsonl", strings.NewReader("\n"+tt.input+"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "events.jsonl: line 2")
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, aqaerrors.ExitConfigError, aqaerrors.GetExitCode(err))
		})
	}
}

func TestStaticPage(t *testing.T) {
	p, err := newStaticPage(&Page{URL: "https://x"})
	require.NoError(t, err)

	_, err = p.Screenshot(context.Background())
	assert.ErrorIs(t, err, errNoScreenshot)

	info, err := p.BrowserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, record.UnknownBrowser, info)
}
