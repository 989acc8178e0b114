// Package config loads .aqareport.yaml / .aqareport.toml and applies
// defaults and AQA_* environment overrides.
package config

// Config is the complete aqareport configuration.
type Config struct {
	Project ProjectConfig  `yaml:"project" toml:"project"`
	Results ResultsConfig  `yaml:"results" toml:"results"`
	Report  ReportConfig   `yaml:"report" toml:"report"`
	Logging LoggingConfig  `yaml:"logging" toml:"logging"`
	Browser BrowserConfig  `yaml:"browser" toml:"browser"`
	CI      CIConfig       `yaml:"ci" toml:"ci"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" toml:"metrics,omitempty"`
	History *HistoryConfig `yaml:"history,omitempty" toml:"history,omitempty"`
	Publish *PublishConfig `yaml:"publish,omitempty" toml:"publish,omitempty"`
}

// ProjectConfig describes the test suite.
type ProjectConfig struct {
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// SourceURL is the base of source links, e.g.
	// https://github.com/org/repo/blob/main
	SourceURL string `yaml:"source_url,omitempty" toml:"source_url,omitempty"`
}

// ResultsConfig controls per-worker result files.
type ResultsConfig struct {
	Dir             string   `yaml:"dir,omitempty" toml:"dir,omitempty"`
	WorkerID        string   `yaml:"worker_id,omitempty" toml:"worker_id,omitempty"`
	Reruns          int      `yaml:"reruns,omitempty" toml:"reruns,omitempty"`
	ScreenshotLimit *int     `yaml:"screenshot_limit,omitempty" toml:"screenshot_limit,omitempty"`
	TimingExclude   []string `yaml:"timing_exclude,omitempty" toml:"timing_exclude,omitempty"`
	ValidateRecords bool     `yaml:"validate_records,omitempty" toml:"validate_records,omitempty"`
}

// ReportConfig controls the aggregated HTML report.
type ReportConfig struct {
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`
	Title  string `yaml:"title,omitempty" toml:"title,omitempty"`

	// SlowTestSeconds marks tests slower than this in the summary.
	SlowTestSeconds float64 `yaml:"slow_test_seconds,omitempty" toml:"slow_test_seconds,omitempty"`

	// SlowStepSeconds marks execution-log steps slower than this.
	SlowStepSeconds float64 `yaml:"slow_step_seconds,omitempty" toml:"slow_step_seconds,omitempty"`

	// SlowStepMinCount is how often a step must be slow to be reported.
	SlowStepMinCount int `yaml:"slow_step_min_count,omitempty" toml:"slow_step_min_count,omitempty"`

	Categories []CategoryConfig `yaml:"categories,omitempty" toml:"categories,omitempty"`
}

// CategoryConfig groups slow tests whose node id contains any of Match.
type CategoryConfig struct {
	Name  string   `yaml:"name" toml:"name"`
	Match []string `yaml:"match" toml:"match"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
}

// BrowserConfig controls the browser launched by the Go harness.
type BrowserConfig struct {
	Headless *bool `yaml:"headless,omitempty" toml:"headless,omitempty"`
	Width    int   `yaml:"width,omitempty" toml:"width,omitempty"`
	Height   int   `yaml:"height,omitempty" toml:"height,omitempty"`
}

// CIConfig links the report to the CI job that produced it.
type CIConfig struct {
	JobID  string `yaml:"job_id,omitempty" toml:"job_id,omitempty"`
	JobURL string `yaml:"job_url,omitempty" toml:"job_url,omitempty"`
}

// MetricsConfig enables the Prometheus text file.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
	Suite    string `yaml:"suite,omitempty" toml:"suite,omitempty"`
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	Path        string `yaml:"path" toml:"path"`
	FlakyWindow int    `yaml:"flaky_window,omitempty" toml:"flaky_window,omitempty"`
}

// PublishConfig uploads the report to an object store.
type PublishConfig struct {
	Provider  string `yaml:"provider" toml:"provider"`
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty" toml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty" toml:"path_style,omitempty"`
	Insecure  bool   `yaml:"insecure,omitempty" toml:"insecure,omitempty"`

	// IncludeResults also uploads the raw worker files.
	IncludeResults bool `yaml:"include_results,omitempty" toml:"include_results,omitempty"`

	GCPProject   string `yaml:"gcp_project,omitempty" toml:"gcp_project,omitempty"`
	AzureAccount string `yaml:"azure_account,omitempty" toml:"azure_account,omitempty"`
}
