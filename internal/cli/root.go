package cli

import (
	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/config"
	"github.com/Goraved/aqareport/internal/logging"
)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aqareport",
		Short: "Collect test results from parallel workers and render an HTML report",
		Long: `aqareport records one result per test attempt into per-worker files,
then aggregates them into a self-contained HTML report with statistics,
a timeline of workers and a human-readable summary.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.SetVersionTemplate("aqareport {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: .aqareport.yaml or .aqareport.toml, searched upwards)")
	flags.StringVar(&a.overrides.resultsDir, "results-dir", "", "Directory holding worker result files")
	flags.StringVar(&a.overrides.workerID, "worker-id", "", "Worker id used in the result file name")
	flags.StringVar(&a.overrides.logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	flags.StringVar(&a.overrides.logFormat, "log-format", "", "Diagnostic log format (console, json)")
	flags.BoolVarP(&a.overrides.quiet, "quiet", "q", false, "Only print errors and requested output")
	flags.BoolVar(&a.overrides.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		newIngestCmd(a),
		newGoTestCmd(a),
		newReportCmd(a),
		newSummaryCmd(a),
		newQueryCmd(a),
		newHistoryCmd(a),
		newCleanCmd(a),
		newPublishCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// setup resolves the configuration and the logger for a command.
func (a *app) setup() error {
	a.out.SetQuiet(a.overrides.quiet)
	if a.overrides.noColor {
		a.out.SetColor(false)
	}

	if _, err := config.LoadDotEnv("."); err != nil {
		a.out.Warning("could not load .env: %v", err)
	}
	cfg, warnings, err := config.Resolve(a.configPath, a.getenv)
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return configError(err)
	}

	o := a.overrides
	if o.resultsDir != "" {
		cfg.Results.Dir = o.resultsDir
	}
	if o.workerID != "" {
		cfg.Results.WorkerID = o.workerID
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return configError(err)
	}

	log, flush, err := logging.New(cfg.Logging)
	if err != nil {
		return configError(err)
	}
	a.cfg, a.log, a.flush = cfg, log, flush
	return nil
}
