// Package cli provides the aqareport command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/Goraved/aqareport/internal/config"
	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/output"
)

// Version is set at build time.
var Version = "dev"

// app is the state shared by the commands of one invocation.
type app struct {
	stdin  io.Reader
	out    *output.Writer
	getenv func(string) string

	configPath string
	overrides  overrides

	cfg   *config.Config
	log   logr.Logger
	flush func()
}

// overrides holds the global flags that take precedence over the config.
type overrides struct {
	resultsDir string
	workerID   string
	logLevel   string
	logFormat  string
	quiet      bool
	noColor    bool
}

// exitCodeError ends a command with a specific exit code and no message.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return "exit status" }

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWithIO(ctx, args, os.Stdin, output.New(), os.Getenv)
}

// RunWithIO executes the CLI with explicit input, output and environment.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, out *output.Writer, getenv func(string) string) int {
	a := &app{stdin: stdin, out: out, getenv: getenv, log: logr.Discard(), flush: func() {}}
	defer func() { a.flush() }()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(out.Out())
	root.SetErr(out.Out())

	err := root.ExecuteContext(ctx)
	if err == nil {
		return aqaerrors.ExitSuccess
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	out.ErrorPrefix("%v", err)
	return aqaerrors.GetExitCode(err)
}

// configError marks an error from loading or validating configuration.
func configError(err error) error {
	var re *aqaerrors.ReportError
	if errors.As(err, &re) {
		return err
	}
	return &aqaerrors.ReportError{Kind: aqaerrors.KindConfig, Message: "invalid configuration", Cause: err}
}
