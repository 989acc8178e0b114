package config

import "github.com/Goraved/aqareport/internal/timing"

// Default configuration values.
const (
	DefaultResultsDir       = "reports"
	DefaultWorkerID         = "master"
	DefaultScreenshotLimit  = 5
	DefaultReportOutput     = "report.html"
	DefaultReportTitle      = "Test Report"
	DefaultSlowTestSeconds  = 120
	DefaultSlowStepSeconds  = 10
	DefaultSlowStepMinCount = 3
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultBrowserWidth     = 1280
	DefaultBrowserHeight    = 720
	DefaultFlakyWindow      = 10
	DefaultMetricsSuite     = "e2e"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *Config) {
	applyResultsDefaults(cfg)
	applyReportDefaults(cfg)
	applyLoggingDefaults(cfg)
	applyBrowserDefaults(cfg)
	applySideOutputDefaults(cfg)
}

func applyResultsDefaults(cfg *Config) {
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = DefaultResultsDir
	}
	if cfg.Results.WorkerID == "" {
		cfg.Results.WorkerID = DefaultWorkerID
	}
	if cfg.Results.ScreenshotLimit == nil {
		limit := DefaultScreenshotLimit
		cfg.Results.ScreenshotLimit = &limit
	}
	if cfg.Results.TimingExclude == nil {
		cfg.Results.TimingExclude = append([]string(nil), timing.DefaultExclude...)
	}
}

func applyReportDefaults(cfg *Config) {
	if cfg.Report.Output == "" {
		cfg.Report.Output = DefaultReportOutput
	}
	if cfg.Report.Title == "" {
		cfg.Report.Title = DefaultReportTitle
	}
	if cfg.Report.SlowTestSeconds == 0 {
		cfg.Report.SlowTestSeconds = DefaultSlowTestSeconds
	}
	if cfg.Report.SlowStepSeconds == 0 {
		cfg.Report.SlowStepSeconds = DefaultSlowStepSeconds
	}
	if cfg.Report.SlowStepMinCount == 0 {
		cfg.Report.SlowStepMinCount = DefaultSlowStepMinCount
	}
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

func applyBrowserDefaults(cfg *Config) {
	if cfg.Browser.Headless == nil {
		headless := true
		cfg.Browser.Headless = &headless
	}
	if cfg.Browser.Width == 0 {
		cfg.Browser.Width = DefaultBrowserWidth
	}
	if cfg.Browser.Height == 0 {
		cfg.Browser.Height = DefaultBrowserHeight
	}
}

func applySideOutputDefaults(cfg *Config) {
	if cfg.History != nil && cfg.History.FlakyWindow == 0 {
		cfg.History.FlakyWindow = DefaultFlakyWindow
	}
	if cfg.Metrics != nil && cfg.Metrics.Suite == "" {
		cfg.Metrics.Suite = DefaultMetricsSuite
	}
}
