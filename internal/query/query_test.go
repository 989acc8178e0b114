package query

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/record"
)

func results() []*record.Result {
	return []*record.Result{
		{NodeID: "a::one", Outcome: record.OutcomePassed, Duration: 1.5, WorkerID: "gw0"},
		{NodeID: "a::two", Outcome: record.OutcomeFailed, Duration: 3, WorkerID: "gw1"},
		{NodeID: "a::three", Outcome: record.OutcomeFailed, Duration: 0.5, WorkerID: "gw0"},
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []any
	}{
		{"select", `.[] | select(.outcome == "failed") | .nodeid`, []any{"a::two", "a::three"}},
		{"length", `length`, []any{3}},
		{"group", `group_by(.worker_id) | map({(.[0].worker_id): length}) | add`, []any{map[string]any{"gw0": 2, "gw1": 1}}},
		{"sum", `map(.duration) | add`, []any{5.0}},
		{"empty", `.[] | select(.outcome == "skipped")`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(context.Background(), tt.expr, results())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Run(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestRun_EmptyInput(t *testing.T) {
	got, err := Run(context.Background(), `length`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{0}, got)
}

func TestRun_ParseError(t *testing.T) {
	_, err := Run(context.Background(), `.[] | select(`, results())
	require.Error(t, err)
	assert.Equal(t, aqaerrors.ExitConfigError, aqaerrors.GetExitCode(err))
}

func TestRun_EvaluationError(t *testing.T) {
	_, err := Run(context.Background(), `.[] | .nodeid + 1`, results())
	require.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, `range(1e9)`, results())
	require.Error(t, err)
}

func TestWrite(t *testing.T) {
	values := []any{"a::one", map[string]any{"n": 1}, 2.5}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, values, true))
	assert.Equal(t, "a::one\n{\"n\":1}\n2.5\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, values[:1], false))
	assert.Equal(t, "\"a::one\"\n", buf.String())
}
