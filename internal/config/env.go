package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvResultsDir      = "AQA_REPORT_DIR"
	EnvWorkerID        = "AQA_WORKER_ID"
	EnvReruns          = "AQA_RERUNS"
	EnvScreenshotLimit = "AQA_SCREENSHOT_LIMIT"
	EnvLogLevel        = "AQA_LOG_LEVEL"
	EnvLogFormat       = "AQA_LOG_FORMAT"
	EnvSourceURL       = "AQA_SOURCE_URL"
	EnvReportOutput    = "AQA_REPORT_OUTPUT"
	EnvReportTitle     = "AQA_REPORT_TITLE"
	EnvJobID           = "AQA_JOB_ID"
	EnvJobURL          = "AQA_JOB_URL"
	EnvHeadless        = "AQA_HEADLESS"
	EnvMetricsTextfile = "AQA_METRICS_TEXTFILE"
	EnvHistoryPath     = "AQA_HISTORY_PATH"
	EnvPublishProvider = "AQA_PUBLISH_PROVIDER"
	EnvPublishBucket   = "AQA_PUBLISH_BUCKET"
	EnvPublishPrefix   = "AQA_PUBLISH_PREFIX"
)

// ApplyEnv overrides configuration values from AQA_* variables. Setting
// AQA_METRICS_TEXTFILE, AQA_HISTORY_PATH or AQA_PUBLISH_BUCKET enables the
// corresponding side output.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	setString(&cfg.Results.Dir, env(EnvResultsDir))
	setString(&cfg.Results.WorkerID, env(EnvWorkerID))
	setString(&cfg.Logging.Level, strings.ToLower(env(EnvLogLevel)))
	setString(&cfg.Logging.Format, strings.ToLower(env(EnvLogFormat)))
	setString(&cfg.Project.SourceURL, env(EnvSourceURL))
	setString(&cfg.Report.Output, env(EnvReportOutput))
	setString(&cfg.Report.Title, env(EnvReportTitle))
	setString(&cfg.CI.JobID, env(EnvJobID))
	setString(&cfg.CI.JobURL, env(EnvJobURL))

	if v := env(EnvReruns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvReruns, v)
		}
		cfg.Results.Reruns = n
	}
	if v := env(EnvScreenshotLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvScreenshotLimit, v)
		}
		cfg.Results.ScreenshotLimit = &n
	}
	if v := env(EnvHeadless); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return fmt.Errorf("%s: invalid boolean %q", EnvHeadless, v)
		}
		cfg.Browser.Headless = &b
	}

	if v := env(EnvMetricsTextfile); v != "" {
		if cfg.Metrics == nil {
			cfg.Metrics = &MetricsConfig{Suite: DefaultMetricsSuite}
		}
		cfg.Metrics.Textfile = v
	}
	if v := env(EnvHistoryPath); v != "" {
		if cfg.History == nil {
			cfg.History = &HistoryConfig{FlakyWindow: DefaultFlakyWindow}
		}
		cfg.History.Path = v
	}
	if v := env(EnvPublishBucket); v != "" {
		if cfg.Publish == nil {
			cfg.Publish = &PublishConfig{Provider: "s3"}
		}
		cfg.Publish.Bucket = v
	}
	if cfg.Publish != nil {
		setString(&cfg.Publish.Provider, env(EnvPublishProvider))
		setString(&cfg.Publish.Prefix, env(EnvPublishPrefix))
	}
	return nil
}

// LoadDotEnv loads the nearest .env file in dir or its parents. Variables
// already set in the process environment win. It returns the loaded path.
func LoadDotEnv(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return envFile, godotenv.Load(envFile)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}
