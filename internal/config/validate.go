package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// workerIDPattern keeps worker ids safe to embed in a file name.
var workerIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "console"}
	providers  = []string{"s3", "aws", "minio", "gcs", "gcp", "azure", "blob"}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration with defaults applied.
func Validate(cfg *Config) error {
	if err := validateResults(cfg.Results); err != nil {
		return err
	}
	if err := validateReport(cfg.Report); err != nil {
		return err
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return err
	}
	if cfg.Metrics != nil && cfg.Metrics.Textfile == "" {
		return &ValidationError{Field: "metrics.textfile", Message: "is required"}
	}
	if cfg.History != nil {
		if cfg.History.Path == "" {
			return &ValidationError{Field: "history.path", Message: "is required"}
		}
		if cfg.History.FlakyWindow < 2 {
			return &ValidationError{Field: "history.flaky_window", Message: "must be at least 2"}
		}
	}
	if cfg.Publish != nil {
		return validatePublish(*cfg.Publish)
	}
	return nil
}

func validateResults(r ResultsConfig) error {
	if r.Dir == "" {
		return &ValidationError{Field: "results.dir", Message: "is required"}
	}
	if err := ValidateWorkerID(r.WorkerID); err != nil {
		return err
	}
	if r.Reruns < 0 {
		return &ValidationError{Field: "results.reruns", Message: "must be >= 0"}
	}
	if r.ScreenshotLimit != nil && *r.ScreenshotLimit < -1 {
		return &ValidationError{Field: "results.screenshot_limit", Message: "must be >= 0, or -1 for no limit"}
	}
	return nil
}

func validateReport(r ReportConfig) error {
	if r.SlowTestSeconds < 0 {
		return &ValidationError{Field: "report.slow_test_seconds", Message: "must be >= 0"}
	}
	if r.SlowStepSeconds < 0 {
		return &ValidationError{Field: "report.slow_step_seconds", Message: "must be >= 0"}
	}
	if r.SlowStepMinCount < 1 {
		return &ValidationError{Field: "report.slow_step_min_count", Message: "must be >= 1"}
	}
	for i, c := range r.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("report.categories[%d].name", i), Message: "is required"}
		}
		if len(c.Match) == 0 {
			return &ValidationError{Field: fmt.Sprintf("report.categories[%d].match", i), Message: "needs at least one pattern"}
		}
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	if !slices.Contains(logLevels, strings.ToLower(l.Level)) {
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("must be one of %s", strings.Join(logLevels, ", "))}
	}
	if !slices.Contains(logFormats, strings.ToLower(l.Format)) {
		return &ValidationError{Field: "logging.format", Message: `must be "json" or "console"`}
	}
	return nil
}

func validatePublish(p PublishConfig) error {
	if !slices.Contains(providers, strings.ToLower(strings.TrimSpace(p.Provider))) {
		return &ValidationError{Field: "publish.provider", Message: "must be one of s3, minio, gcs, azure"}
	}
	if p.Bucket == "" {
		return &ValidationError{Field: "publish.bucket", Message: "is required"}
	}
	return nil
}

// ValidateWorkerID checks that a worker id can be used in a result file name.
func ValidateWorkerID(id string) error {
	if id == "" {
		return &ValidationError{Field: "results.worker_id", Message: "is required"}
	}
	if !workerIDPattern.MatchString(id) {
		return &ValidationError{
			Field:   "results.worker_id",
			Message: "must match pattern ^[A-Za-z0-9][A-Za-z0-9_.-]*$",
		}
	}
	return nil
}
