// Package report renders the aggregated results of a run as a single
// self-contained HTML file.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
	"github.com/Goraved/aqareport/internal/store"
)

// NoResultsPage is written when the results directory holds no records.
const NoResultsPage = "<html><body><h1>No tests were run</h1></body></html>"

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Test Report"

// Options configures Generate.
type Options struct {
	// ResultsDir holds the worker files.
	ResultsDir string
	// Output is the HTML file to write.
	Output string
	Title  string
	// Worker marks a worker process; workers never render the report.
	Worker bool

	JobID  string
	JobURL string

	SlowStepSeconds  float64
	SlowStepMinCount int
	Summary          stats.SummaryOptions

	Logger logr.Logger
	Now    func() time.Time

	// template overrides the embedded page template in tests.
	template string
}

// Report is the outcome of Generate.
type Report struct {
	Path    string
	Results []*record.Result
	Stats   stats.Stats
	// Rendered is false for workers and for runs without results.
	Rendered bool
}

// Generate aggregates ResultsDir and writes the HTML report to Output.
// A template failure still writes an error page to Output and returns the
// error.
func Generate(ctx context.Context, opts Options) (*Report, error) {
	opts = withDefaults(opts)
	log := opts.Logger
	rep := &Report{Path: opts.Output}

	if opts.Worker {
		log.V(1).Info("skipping report on worker process")
		return rep, nil
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	results, err := store.Aggregate(opts.ResultsDir)
	if err != nil {
		return rep, err
	}
	rep.Results = results

	if len(results) == 0 {
		log.Info("no results found", "dir", opts.ResultsDir)
		return rep, writeFile(opts.Output, []byte(NoResultsPage))
	}

	for _, r := range results {
		r.FormattedTimestamp = stats.FormatTimestamp(r.Timestamp)
	}
	s := stats.Calculate(results)
	s.SlowFunctions = stats.SlowFunctions(results, opts.SlowStepSeconds, opts.SlowStepMinCount)
	s.Summary = stats.Summary(results, s, opts.Summary)
	rep.Stats = s

	page, err := render(opts, results, s)
	if err != nil {
		log.Error(err, "report template failed")
		errPage := fmt.Sprintf("<html><body><h1>Error Generating Report</h1><p>Template error when generating report: %s</p></body></html>",
			template.HTMLEscapeString(err.Error()))
		if werr := writeFile(opts.Output, []byte(errPage)); werr != nil {
			return rep, werr
		}
		return rep, aqaerrors.Wrap(err, "render report")
	}
	if err := writeFile(opts.Output, page); err != nil {
		return rep, err
	}
	rep.Rendered = true
	log.Info("report generated", "path", opts.Output, "tests", s.Total, "success_rate", s.SuccessRate)
	return rep, nil
}

func withDefaults(opts Options) Options {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Output == "" {
		opts.Output = "report.html"
	}
	if opts.SlowStepSeconds <= 0 {
		opts.SlowStepSeconds = stats.DefaultSlowStepSeconds
	}
	if opts.SlowStepMinCount <= 0 {
		opts.SlowStepMinCount = stats.DefaultSlowStepMinCount
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.template == "" {
		opts.template = pageTemplate
	}
	return opts
}

func render(opts Options, results []*record.Result, s stats.Stats) ([]byte, error) {
	tmpl, err := template.New("report").Funcs(funcs).Parse(opts.template)
	if err != nil {
		return nil, err
	}

	timeline := Timeline(results)
	compressedTests, err := Compress(results)
	if err != nil {
		return nil, err
	}
	compressedTimeline, err := Compress(timeline)
	if err != nil {
		return nil, err
	}

	tests := make([]testView, 0, len(results))
	for _, r := range results {
		tests = append(tests, newTestView(r))
	}

	data := pageData{
		Title:              opts.Title,
		Stats:              s,
		Summary:            template.HTML(s.Summary),
		Tests:              tests,
		Environment:        results[0].Environment,
		Metadata:           ReadToolInfo(),
		GeneratedAt:        opts.Now().Format(time.DateTime),
		StartTime:          stats.FormatTimestamp(s.StartTime),
		Duration:           stats.FormatDuration(s.TotalDuration),
		JobID:              opts.JobID,
		JobURL:             opts.JobURL,
		CompressedTests:    compressedTests,
		CompressedTimeline: compressedTimeline,
		CSS:                template.CSS(stylesCSS),
		JS:                 template.JS(reportJS),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return aqaerrors.Wrap(err, "create report directory")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return aqaerrors.Wrap(err, "write report")
	}
	return nil
}
