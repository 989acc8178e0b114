package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"empty results dir", func(c *Config) { c.Results.Dir = "" }, "results.dir"},
		{"negative reruns", func(c *Config) { c.Results.Reruns = -1 }, "results.reruns"},
		{"path in worker id", func(c *Config) { c.Results.WorkerID = "gw0/../x" }, "results.worker_id"},
		{"screenshot limit", func(c *Config) { n := -2; c.Results.ScreenshotLimit = &n }, "results.screenshot_limit"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"category name", func(c *Config) { c.Report.Categories = []CategoryConfig{{Match: []string{"api"}}} }, "report.categories[0].name"},
		{"category match", func(c *Config) { c.Report.Categories = []CategoryConfig{{Name: "API"}} }, "report.categories[0].match"},
		{"metrics textfile", func(c *Config) { c.Metrics = &MetricsConfig{} }, "metrics.textfile"},
		{"history path", func(c *Config) { c.History = &HistoryConfig{FlakyWindow: 5} }, "history.path"},
		{"flaky window", func(c *Config) { c.History = &HistoryConfig{Path: "h.db", FlakyWindow: 1} }, "history.flaky_window"},
		{"publish provider", func(c *Config) { c.Publish = &PublishConfig{Provider: "ftp", Bucket: "b"} }, "publish.provider"},
		{"publish bucket", func(c *Config) { c.Publish = &PublishConfig{Provider: "minio"} }, "publish.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestValidateWorkerID(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"master", "gw0", "gw12", "worker-a.1", "node_3"} {
		if err := ValidateWorkerID(id); err != nil {
			t.Errorf("ValidateWorkerID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"", "-gw", "gw 1", "a/b", ".hidden"} {
		if err := ValidateWorkerID(id); err == nil {
			t.Errorf("ValidateWorkerID(%q) = nil, want error", id)
		}
	}
}
