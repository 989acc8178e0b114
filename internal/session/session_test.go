package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goraved/aqareport/internal/config"
	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/store"
	"github.com/Goraved/aqareport/internal/timing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Results.Dir = t.TempDir()
	cfg.Results.WorkerID = "gw3"
	cfg.Results.Reruns = 1
	cfg.Project.SourceURL = "https://github.com/Goraved/shop/blob/main"
	return cfg
}

func TestNew_WritesWorkerFile(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, logr.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	item := &lifecycle.Item{NodeID: "tests/cart_test.go::TestAdd", Line: 12}
	start := time.Now()
	for _, phase := range record.Phases {
		_, err := s.Handler.Process(ctx, item, &lifecycle.Report{Phase: phase, Outcome: record.OutcomePassed, Start: start})
		require.NoError(t, err)
	}

	results, err := store.Aggregate(cfg.Results.Dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gw3", results[0].WorkerID)
	assert.Equal(t, "https://github.com/Goraved/shop/blob/main/tests/cart_test.go#L12", results[0].GitHubLink)
	assert.Equal(t, filepath.Join(cfg.Results.Dir, store.FileName("gw3")), s.Writer.Path())
}

func TestNew_InvalidWorker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Results.WorkerID = "../escape"
	_, err := New(cfg, logr.Discard())
	require.Error(t, err)
}

func TestNew_ValidatesRecords(t *testing.T) {
	cfg := testConfig(t)
	cfg.Results.ValidateRecords = true
	s, err := New(cfg, logr.Discard())
	require.NoError(t, err)

	_, err = s.Handler.Process(context.Background(),
		&lifecycle.Item{NodeID: "a::b"},
		&lifecycle.Report{Phase: record.PhaseSetup, Outcome: record.OutcomeSkipped, SkipReason: "Skipped: later"})
	require.NoError(t, err)
}

func TestTimingLog_UsesConfiguredExclusions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Results.TimingExclude = []string{"scroll"}
	s, err := New(cfg, logr.Discard())
	require.NoError(t, err)

	lg := s.TimingLog()
	require.NoError(t, lg.Track("scroll", timing.KindFunction, func() error { return nil }))
	require.NoError(t, lg.Track("click", timing.KindFunction, func() error { return nil }))

	lines := lg.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "function - click: ")
}
