package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvReruns:          "3",
		EnvScreenshotLimit: "-1",
		EnvHeadless:        "no",
		EnvJobID:           "1234",
		EnvJobURL:          "https://ci.example.com/jobs/1234",
		EnvMetricsTextfile: "/var/lib/node_exporter/aqa.prom",
		EnvHistoryPath:     "history.db",
		EnvPublishBucket:   "reports",
		EnvPublishProvider: "gcs",
		EnvPublishPrefix:   "nightly/",
	}
	cfg := Default()

	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Results.Reruns != 3 {
		t.Errorf("Reruns = %d, want 3", cfg.Results.Reruns)
	}
	if *cfg.Results.ScreenshotLimit != -1 {
		t.Errorf("ScreenshotLimit = %d, want -1", *cfg.Results.ScreenshotLimit)
	}
	if *cfg.Browser.Headless {
		t.Error("Headless = true, want false")
	}
	if cfg.CI.JobID != "1234" || cfg.CI.JobURL == "" {
		t.Errorf("CI = %+v", cfg.CI)
	}
	if cfg.Metrics == nil || cfg.Metrics.Suite != DefaultMetricsSuite {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.History == nil || cfg.History.FlakyWindow != DefaultFlakyWindow {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Publish == nil || cfg.Publish.Provider != "gcs" || cfg.Publish.Prefix != "nightly/" {
		t.Errorf("Publish = %+v", cfg.Publish)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvReruns, "many"},
		{EnvScreenshotLimit, "5.5"},
		{EnvHeadless, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ApplyEnv(Default(), func(k string) string {
				if k == tt.key {
					return tt.value
				}
				return ""
			})
			if err == nil {
				t.Errorf("ApplyEnv(%s=%q) expected error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "suite")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, ".env", "AQA_TEST_DOTENV_VALUE=from-dotenv\n")
	t.Setenv("AQA_TEST_DOTENV_VALUE", "")
	os.Unsetenv("AQA_TEST_DOTENV_VALUE")

	path, err := LoadDotEnv(nested)
	if err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if path != filepath.Join(root, ".env") {
		t.Errorf("path = %q", path)
	}
	if got := os.Getenv("AQA_TEST_DOTENV_VALUE"); got != "from-dotenv" {
		t.Errorf("AQA_TEST_DOTENV_VALUE = %q, want from-dotenv", got)
	}
}
