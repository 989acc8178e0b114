package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/config"
	"github.com/Goraved/aqareport/internal/history"
	"github.com/Goraved/aqareport/internal/metrics"
	"github.com/Goraved/aqareport/internal/report"
	"github.com/Goraved/aqareport/internal/stats"
	"github.com/Goraved/aqareport/internal/store"
)

type reportFlags struct {
	output         string
	title          string
	metrics        string
	history        string
	publish        bool
	clean          bool
	failOnFailures bool
	runID          string
	keepRuns       int
}

func newReportCmd(a *app) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate worker files into the HTML report",
		Long: `Merges every worker file in the results directory, computes statistics
and writes a self-contained HTML report. Optional side outputs export
Prometheus metrics, record the run in the history database and publish
the report to an object store.

When AQA_WORKER_ID names a worker other than "master", the command does
nothing: only the coordinating process renders the report.`,
		Example: `  aqareport report -o build/report.html
  aqareport report --metrics /var/lib/node_exporter/aqa.prom --history .aqa/history.db
  aqareport report --publish --keep-runs 30 --clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd.Context(), flags)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "HTML file to write (default from config)")
	f.StringVar(&flags.title, "title", "", "Report title (default from config)")
	f.StringVar(&flags.metrics, "metrics", "", "Write Prometheus metrics to this text file")
	f.StringVar(&flags.history, "history", "", "Record the run in this SQLite history database")
	f.BoolVar(&flags.publish, "publish", false, "Upload the report to the configured object store")
	f.BoolVar(&flags.clean, "clean", false, "Remove the worker files after the report is written")
	f.BoolVar(&flags.failOnFailures, "fail-on-failures", false, "Exit with code 1 when a test failed")
	f.StringVar(&flags.runID, "run-id", "", "Run id used for history and publishing (default: random UUID)")
	f.IntVar(&flags.keepRuns, "keep-runs", 0, "With --publish, delete all but this many published runs (0 keeps all)")
	return cmd
}

func (a *app) runReport(ctx context.Context, flags *reportFlags) error {
	cfg := a.cfg
	if flags.output != "" {
		cfg.Report.Output = flags.output
	}
	if flags.title != "" {
		cfg.Report.Title = flags.title
	}
	runID, err := a.runID(flags.runID)
	if err != nil {
		return err
	}
	if flags.keepRuns < 0 || (flags.keepRuns > 0 && !flags.publish) {
		return configError(fmt.Errorf("--keep-runs needs --publish and a value >= 0"))
	}

	rep, err := report.Generate(ctx, report.Options{
		ResultsDir:       cfg.Results.Dir,
		Output:           cfg.Report.Output,
		Title:            cfg.Report.Title,
		Worker:           a.isWorker(),
		JobID:            cfg.CI.JobID,
		JobURL:           cfg.CI.JobURL,
		SlowStepSeconds:  cfg.Report.SlowStepSeconds,
		SlowStepMinCount: cfg.Report.SlowStepMinCount,
		Summary:          summaryOptions(cfg.Report),
		Logger:           a.log,
	})
	if err != nil {
		return err
	}
	if a.isWorker() {
		a.out.Info("Worker %s: skipping report", cfg.Results.WorkerID)
		return nil
	}
	if !rep.Rendered {
		a.out.Warning("no test results found in %s", cfg.Results.Dir)
	} else {
		a.out.Success("Report written to %s (%d tests, %.2f%% passed)", rep.Path, rep.Stats.Total, rep.Stats.SuccessRate)
	}

	if path := firstNonEmpty(flags.metrics, metricsPath(cfg)); path != "" {
		if err := a.writeMetrics(path, runID, rep); err != nil {
			return err
		}
	}
	if path := firstNonEmpty(flags.history, historyPath(cfg)); path != "" && len(rep.Results) > 0 {
		if err := a.recordHistory(ctx, path, runID, rep); err != nil {
			return err
		}
	}
	if flags.publish {
		historyDB := firstNonEmpty(flags.history, historyPath(cfg))
		if err := a.publish(ctx, runID, rep.Path, flags.keepRuns, historyDB); err != nil {
			return err
		}
	}
	if flags.clean {
		n, err := store.Clean(cfg.Results.Dir)
		if err != nil {
			return err
		}
		a.out.Info("Removed %d worker files", n)
	}

	if flags.failOnFailures && rep.Stats.HasFailures() {
		return &exitCodeError{code: 1}
	}
	return nil
}

func (a *app) runID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, configError(fmt.Errorf("--run-id: %w", err))
	}
	return id, nil
}

// isWorker reports whether the process was started as a non-coordinating
// worker.
func (a *app) isWorker() bool {
	id := a.getenv(config.EnvWorkerID)
	return id != "" && id != config.DefaultWorkerID
}

func summaryOptions(r config.ReportConfig) stats.SummaryOptions {
	opts := stats.SummaryOptions{SlowTestSeconds: r.SlowTestSeconds}
	for _, c := range r.Categories {
		opts.Categories = append(opts.Categories, stats.Category{Name: c.Name, Match: c.Match})
	}
	return opts
}

func (a *app) writeMetrics(path string, runID uuid.UUID, rep *report.Report) error {
	suite := config.DefaultMetricsSuite
	if a.cfg.Metrics != nil && a.cfg.Metrics.Suite != "" {
		suite = a.cfg.Metrics.Suite
	}
	c := metrics.NewCollector(metrics.RunInfo{RunID: runID.String(), Suite: suite, JobID: a.cfg.CI.JobID})
	c.ObserveRun(rep.Results, rep.Stats)
	if err := c.Write(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.out.Info("Metrics written to %s", path)
	return nil
}

func (a *app) recordHistory(ctx context.Context, path string, runID uuid.UUID, rep *report.Report) error {
	h, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := h.RecordRun(ctx, runID, a.cfg.CI.JobID, rep.Stats, rep.Results); err != nil {
		return err
	}
	a.out.Info("Run %s recorded in %s", runID, path)
	return nil
}

func metricsPath(cfg *config.Config) string {
	if cfg.Metrics == nil {
		return ""
	}
	return cfg.Metrics.Textfile
}

func historyPath(cfg *config.Config) string {
	if cfg.History == nil {
		return ""
	}
	return cfg.History.Path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
