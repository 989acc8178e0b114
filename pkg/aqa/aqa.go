// Package aqa runs Go tests through the result lifecycle, so every attempt
// of every test is recorded in the worker's result file.
//
//	func TestCheckout(t *testing.T) {
//		aqa.Run(t, aqa.Case{
//			Title: "Guest checkout",
//			Test: func(tc *aqa.T) {
//				tc.Step("open_catalog", func() error { return catalog.Open() })
//				tc.Soft().Equal(3, cart.Count(), "items in cart")
//			},
//		})
//	}
//
// Configuration comes from .aqareport.yaml and AQA_* variables, the same
// as for the aqareport CLI. Flush the default suite's logs from TestMain:
//
//	func TestMain(m *testing.M) {
//		code := m.Run()
//		if s, err := aqa.Default(); err == nil {
//			s.Close()
//		}
//		os.Exit(code)
//	}
package aqa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Goraved/aqareport/internal/config"
	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/logging"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/screenshot"
	"github.com/Goraved/aqareport/internal/session"
	"github.com/Goraved/aqareport/internal/softassert"
)

// SoftAssert collects assertion failures without stopping the test.
type SoftAssert = softassert.Collector

// Page is the browser page a test drives. Failed tests attach its URL and
// a screenshot to the record.
type Page = screenshot.Page

// BrowserInfo names the browser that owns a Page.
type BrowserInfo = record.BrowserInfo

// Case describes one test.
type Case struct {
	// Title is shown in the report instead of the test name.
	Title       string
	Description string
	Markers     []string
	Meta        map[string]any
	CaseLink    string
	CaseID      string

	// Skip skips the test with the given reason.
	Skip string
	// XFail marks the test as expected to fail.
	XFail       bool
	XFailReason string

	// Page is used for screenshots and the final URL of failed tests.
	Page Page

	Setup    func(tc *T) error
	Test     func(tc *T)
	Teardown func(tc *T) error
}

// Suite records tests of one worker process.
type Suite struct {
	s         *session.Session
	flush     func()
	closeOnce sync.Once
}

// NewSuite creates a suite from a resolved configuration.
func NewSuite(cfg *config.Config) (*Suite, error) {
	log, flush, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	s, err := session.New(cfg, log)
	if err != nil {
		flush()
		return nil, err
	}
	return &Suite{s: s, flush: flush}, nil
}

// Close flushes buffered log entries. Call it once all tests have run,
// typically from TestMain.
func (s *Suite) Close() {
	s.closeOnce.Do(s.flush)
}

// LaunchBrowser starts a headless Chrome page configured by the browser
// section. Call cancel to close the browser.
func (s *Suite) LaunchBrowser(ctx context.Context) (Page, context.CancelFunc, error) {
	page, cancel, err := s.s.LaunchBrowser(ctx)
	if err != nil {
		return nil, nil, err
	}
	return page, cancel, nil
}

// ResultsFile returns the path of the worker's result file.
func (s *Suite) ResultsFile() string {
	return s.s.Writer.Path()
}

var (
	defaultOnce  sync.Once
	defaultSuite *Suite
	defaultErr   error
)

// Default returns the suite configured from the working directory and
// the environment.
func Default() (*Suite, error) {
	defaultOnce.Do(func() {
		_, _ = config.LoadDotEnv(".")
		cfg, _, err := config.Resolve("", os.Getenv)
		if err != nil {
			defaultErr = err
			return
		}
		defaultSuite, defaultErr = NewSuite(cfg)
	})
	return defaultSuite, defaultErr
}

// Run runs c with the default suite.
func Run(t *testing.T, c Case) {
	t.Helper()
	suite, err := Default()
	if err != nil {
		t.Fatalf("aqa: %v", err)
	}
	suite.run(t, c, callerLocation(2))
}

// Run runs c, rerunning failed attempts up to the configured number of
// reruns, and reports the final outcome to t.
func (s *Suite) Run(t testing.TB, c Case) {
	t.Helper()
	s.run(t, c, callerLocation(2))
}

func (s *Suite) run(t testing.TB, c Case, loc location) {
	t.Helper()
	ctx := context.Background()
	nodeID := loc.file + "::" + t.Name()
	maxAttempts := s.s.Config.Results.Reruns + 1

	var res *record.Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		res, err = s.attempt(ctx, t, c, nodeID, loc.line, attempt)
		if err != nil {
			t.Errorf("aqa: %v", err)
		}
		if res == nil || res.Outcome != record.OutcomeRerun {
			break
		}
		t.Logf("attempt %d of %s failed, rerunning", attempt, nodeID)
	}
	if res == nil {
		return
	}

	switch res.Outcome {
	case record.OutcomeFailed, record.OutcomeError:
		t.Errorf("%s %s:\n%s", nodeID, res.Outcome, res.Error)
	case record.OutcomeSkipped:
		t.Skip(res.SkipReason)
	case record.OutcomeXFailed:
		t.Logf("expected failure: %s", res.WasXFail)
	case record.OutcomeXPassed:
		t.Logf("unexpectedly passed: %s", res.WasXFail)
	}
}

func (s *Suite) attempt(ctx context.Context, t testing.TB, c Case, nodeID string, line, attempt int) (*record.Result, error) {
	tc := &T{TB: t, soft: softassert.New(), timing: s.s.TimingLog()}
	item := &lifecycle.Item{
		NodeID:      nodeID,
		Attempt:     attempt,
		Description: c.Description,
		Markers:     c.Markers,
		Meta:        caseMeta(c),
		Line:        line,
		CaseLink:    c.CaseLink,
		CaseID:      c.CaseID,
		SoftAssert:  tc.soft,
	}
	if c.Page != nil {
		item.Page = c.Page
	}

	var (
		final *record.Result
		errs  []error
	)
	process := func(rep *lifecycle.Report) {
		item.Logs = tc.Logs()
		item.ExecutionLog = tc.timing.Entries()
		res, err := s.s.Handler.Process(ctx, item, rep)
		if err != nil {
			errs = append(errs, err)
		}
		if res != nil {
			final = res
		}
	}

	setup := runPhase(record.PhaseSetup, tc, func() error {
		if c.Skip != "" {
			return skipSignal{reason: c.Skip}
		}
		if c.Setup == nil {
			return nil
		}
		return c.Setup(tc)
	})
	process(setup)

	if setup.Outcome == record.OutcomePassed {
		call := runPhase(record.PhaseCall, tc, func() error {
			if c.Test != nil {
				c.Test(tc)
			}
			return nil
		})
		if c.XFail {
			call.XFail = true
			call.XFailReason = c.XFailReason
		}
		process(call)
	}

	teardown := runPhase(record.PhaseTeardown, tc, func() error {
		if c.Teardown == nil {
			return nil
		}
		return c.Teardown(tc)
	})
	process(teardown)

	if len(errs) > 0 {
		return final, errs[0]
	}
	return final, nil
}

func caseMeta(c Case) map[string]any {
	meta := make(map[string]any, len(c.Meta)+1)
	for k, v := range c.Meta {
		meta[k] = v
	}
	if c.Title != "" {
		meta["case_title"] = c.Title
	}
	return meta
}

// runPhase runs fn and converts its result, the failures recorded on tc
// and panics into a phase report.
func runPhase(phase record.Phase, tc *T, fn func() error) *lifecycle.Report {
	tc.beginPhase()
	start := time.Now()
	rep := &lifecycle.Report{Phase: phase, Outcome: record.OutcomePassed, Start: start}

	recovered, err := protect(fn)
	rep.Duration = time.Since(start)

	var skip skipSignal
	switch {
	case recovered != nil:
		rep.Outcome = record.OutcomeFailed
		rep.Exception = lifecycle.ExceptionOther
		rep.TypeName = "panic"
		rep.CrashMessage = fmt.Sprintf("panic: %v", recovered)
		rep.LongRepr = fmt.Sprintf("panic: %v\n\n%s", recovered, debug.Stack())
	case errors.As(err, &skip):
		rep.Outcome = record.OutcomeSkipped
		rep.SkipReason = "Skipped: " + skip.reason
	case err != nil:
		rep.Outcome = record.OutcomeFailed
		rep.Exception = lifecycle.ExceptionOther
		rep.TypeName = fmt.Sprintf("%T", err)
		rep.CrashMessage = err.Error()
		rep.LongRepr = err.Error()
	default:
		if failures := tc.phaseFailures(); len(failures) > 0 {
			rep.Outcome = record.OutcomeFailed
			rep.Exception = tc.phaseException()
			rep.TypeName = "FAIL"
			rep.LongRepr = strings.Join(failures, "\n")
			rep.CrashMessage = failures[0]
		}
	}
	return rep
}

// protect calls fn and turns the control-flow panics of T into errors.
// Any other panic value is returned as recovered.
func protect(fn func() error) (recovered any, err error) {
	defer func() {
		r := recover()
		switch v := r.(type) {
		case nil:
		case skipSignal:
			err = v
		case failSignal:
			err = nil
		default:
			recovered = v
		}
	}()
	return nil, fn()
}

type location struct {
	file string
	line int
}

// callerLocation returns the test file relative to the working directory
// and the line of the Run call.
func callerLocation(skip int) location {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return location{file: "unknown", line: 0}
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, file); err == nil && !strings.HasPrefix(rel, "..") {
			file = rel
		}
	}
	return location{file: filepath.ToSlash(file), line: line}
}
