package aqa

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/softassert"
	"github.com/Goraved/aqareport/internal/timing"
)

// T is passed to the phases of a Case. Its failure methods record the
// failure on the current phase instead of failing the underlying test
// directly; the final outcome is reported once all attempts are done.
type T struct {
	TB testing.TB

	soft   *softassert.Collector
	timing *timing.Log

	mu       sync.Mutex
	logs     []string
	failures []string
	fatal    bool
}

type failSignal struct{}

type skipSignal struct {
	reason string
}

func (s skipSignal) Error() string { return "skipped: " + s.reason }

// Name returns the name of the running test.
func (tc *T) Name() string {
	return tc.TB.Name()
}

// Helper marks the calling function as a test helper.
func (tc *T) Helper() {
	tc.TB.Helper()
}

// Logf records a log line on the test record and on the test output.
func (tc *T) Logf(format string, args ...any) {
	tc.TB.Helper()
	msg := fmt.Sprintf(format, args...)
	tc.mu.Lock()
	tc.logs = append(tc.logs, msg)
	tc.mu.Unlock()
	tc.TB.Log(msg)
}

// Log is Logf with default formatting.
func (tc *T) Log(args ...any) {
	tc.TB.Helper()
	tc.Logf("%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Errorf records a failure and continues.
func (tc *T) Errorf(format string, args ...any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.failures = append(tc.failures, fmt.Sprintf(format, args...))
}

// Error is Errorf with default formatting.
func (tc *T) Error(args ...any) {
	tc.Errorf("%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Fatalf records a failure and stops the current phase.
func (tc *T) Fatalf(format string, args ...any) {
	tc.mu.Lock()
	tc.failures = append(tc.failures, fmt.Sprintf(format, args...))
	tc.fatal = true
	tc.mu.Unlock()
	panic(failSignal{})
}

// Fatal is Fatalf with default formatting.
func (tc *T) Fatal(args ...any) {
	tc.Fatalf("%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// FailNow stops the current phase. It records a failure if none was
// recorded yet.
func (tc *T) FailNow() {
	if len(tc.phaseFailures()) == 0 {
		tc.Fatalf("FailNow called")
	}
	tc.mu.Lock()
	tc.fatal = true
	tc.mu.Unlock()
	panic(failSignal{})
}

// Failed reports whether the current phase has recorded a failure.
func (tc *T) Failed() bool {
	return len(tc.phaseFailures()) > 0
}

// Skip stops the current phase and marks the test skipped.
func (tc *T) Skip(reason string) {
	panic(skipSignal{reason: reason})
}

// Skipf is Skip with formatting.
func (tc *T) Skipf(format string, args ...any) {
	tc.Skip(fmt.Sprintf(format, args...))
}

// Soft returns the soft assertion collector of the attempt. Its failures
// turn a passing call phase into a failed one.
func (tc *T) Soft() *SoftAssert {
	return tc.soft
}

// Step runs fn and records its duration in the execution log.
func (tc *T) Step(name string, fn func() error) error {
	return tc.timing.Track(name, timing.KindFunction, fn)
}

// Fixture is Step for setup helpers.
func (tc *T) Fixture(name string, fn func() error) error {
	return tc.timing.Track(name, timing.KindFixture, fn)
}

// Logs returns the log lines recorded so far.
func (tc *T) Logs() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]string, len(tc.logs))
	copy(out, tc.logs)
	return out
}

func (tc *T) beginPhase() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.failures = nil
	tc.fatal = false
}

func (tc *T) phaseFailures() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]string(nil), tc.failures...)
}

func (tc *T) phaseException() lifecycle.ExceptionKind {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.fatal {
		return lifecycle.ExceptionFail
	}
	return lifecycle.ExceptionAssertion
}
