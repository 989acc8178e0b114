// Package softassert collects assertion failures without stopping the test.
package softassert

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/google/go-cmp/cmp"
)

// Collector records failed checks. The zero value is ready to use and a
// Collector is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	failures []string
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{}
}

// Check records a failure when cond is false. It reports cond.
func (c *Collector) Check(cond bool, format string, args ...any) bool {
	if !cond {
		c.fail(callerLine(2), fmt.Sprintf(format, args...))
	}
	return cond
}

// Equal records a failure with a diff when expected and actual differ.
func (c *Collector) Equal(expected, actual any, msg string) bool {
	if cmp.Equal(expected, actual) {
		return true
	}
	text := fmt.Sprintf("%s\nexpected: %v\nactual:   %v", msg, expected, actual)
	if diff := cmp.Diff(expected, actual); diff != "" {
		text += "\ndiff (-expected +actual):\n" + diff
	}
	c.fail(callerLine(2), text)
	return false
}

// NoError records a failure when err is not nil.
func (c *Collector) NoError(err error, msg string) bool {
	if err == nil {
		return true
	}
	c.fail(callerLine(2), fmt.Sprintf("%s: %v", msg, err))
	return false
}

// HasFailures reports whether any check failed.
func (c *Collector) HasFailures() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures) > 0
}

// Failures returns a copy of the recorded failure texts in order.
func (c *Collector) Failures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.failures))
	copy(out, c.failures)
	return out
}

func (c *Collector) fail(line int, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, fmt.Sprintf("%d. Line: %d. \n%s ", len(c.failures)+1, line, msg))
}

func callerLine(skip int) int {
	_, _, line, ok := runtime.Caller(skip)
	if !ok {
		return 0
	}
	return line
}
