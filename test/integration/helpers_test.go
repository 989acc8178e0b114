// Package integration runs the aqareport CLI end to end against fixtures.
package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/Goraved/aqareport/internal/cli"
	"github.com/Goraved/aqareport/internal/output"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// aqareport runs the CLI in-process with an empty environment.
func aqareport(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	out := output.NewWithWriters(&stdout, &stderr, false)
	code := cli.RunWithIO(context.Background(), args, strings.NewReader(stdin), out, func(string) string { return "" })
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
