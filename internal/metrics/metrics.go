// Package metrics exports the results of a run as a Prometheus text file,
// for the node exporter textfile collector.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
)

// Namespace prefixes every metric name.
const Namespace = "aqa"

// DurationBuckets are the test duration histogram buckets in seconds.
var DurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunInfo labels the run a collector describes.
type RunInfo struct {
	RunID string
	Suite string
	JobID string
}

// Collector holds the metrics of one report run.
type Collector struct {
	registry     *prometheus.Registry
	testsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	successRate  *prometheus.GaugeVec
	runDuration  *prometheus.GaugeVec
	runInfo      *prometheus.GaugeVec
	info         RunInfo
}

// NewCollector creates a collector with its own registry.
func NewCollector(info RunInfo) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		info:     info,
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: Namespace, Name: "tests_total", Help: "Number of test attempts by final outcome."},
			[]string{"suite", "outcome"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: Namespace, Name: "test_duration_seconds", Help: "Test attempt duration in seconds.", Buckets: DurationBuckets},
			[]string{"suite", "outcome"},
		),
		successRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: Namespace, Name: "success_rate_percent", Help: "Passed tests as a percentage of all tests."},
			[]string{"suite"},
		),
		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: Namespace, Name: "run_duration_seconds", Help: "Wall-clock duration of the run."},
			[]string{"suite"},
		),
		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: Namespace, Name: "run_info", Help: "Run metadata for traceability."},
			[]string{"suite", "run_id", "job_id"},
		),
	}
	c.registry.MustRegister(c.testsTotal, c.testDuration, c.successRate, c.runDuration, c.runInfo)
	return c
}

// ObserveResult records one test attempt.
func (c *Collector) ObserveResult(r *record.Result) {
	outcome := string(r.Outcome)
	c.testsTotal.WithLabelValues(c.info.Suite, outcome).Inc()
	c.testDuration.WithLabelValues(c.info.Suite, outcome).Observe(r.Duration)
}

// ObserveRun records every result and the run totals.
func (c *Collector) ObserveRun(results []*record.Result, s stats.Stats) {
	for _, r := range results {
		c.ObserveResult(r)
	}
	c.successRate.WithLabelValues(c.info.Suite).Set(s.SuccessRate)
	c.runDuration.WithLabelValues(c.info.Suite).Set(s.TotalDuration)
	c.runInfo.WithLabelValues(c.info.Suite, c.info.RunID, c.info.JobID).Set(1)
}

// Registry returns the registry the collector writes from.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Encode returns the metrics in the Prometheus text format.
func (c *Collector) Encode() ([]byte, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Write writes the metrics to path. The file is replaced atomically so
// that the textfile collector never reads a partial file.
func (c *Collector) Write(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".metrics-*.prom")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
