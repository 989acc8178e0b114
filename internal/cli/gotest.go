package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/gotest"
	"github.com/Goraved/aqareport/internal/record"
)

type goTestFlags struct {
	reruns         int
	subtests       bool
	summary        bool
	failOnFailures bool
}

func newGoTestCmd(a *app) *cobra.Command {
	flags := &goTestFlags{reruns: -1}
	cmd := &cobra.Command{
		Use:   "gotest [file]",
		Short: "Record go test -json output into the worker result file",
		Long: `Converts the event stream of "go test -json" into result records. Every
finished test becomes one attempt; running a test again (for example with
-count=2) records the next attempt of the same test.`,
		Example: `  go test -json ./... | aqareport gotest
  go test -json -count=2 ./e2e/... > out.json && aqareport gotest out.json --reruns 1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGoTest(cmd.Context(), args, flags)
		},
	}
	cmd.Flags().IntVar(&flags.reruns, "reruns", flags.reruns, "Number of reruns of a failed test (default from config)")
	cmd.Flags().BoolVar(&flags.subtests, "subtests", false, "Record subtests as separate tests")
	cmd.Flags().BoolVar(&flags.summary, "summary", true, "Print a summary of the recorded results")
	cmd.Flags().BoolVar(&flags.failOnFailures, "fail-on-failures", false, "Exit with code 1 when a test failed")
	return cmd
}

func (a *app) runGoTest(ctx context.Context, files []string, flags *goTestFlags) error {
	s, err := a.session(flags.reruns)
	if err != nil {
		return configError(err)
	}
	opts := []gotest.Option{gotest.WithLogger(a.log)}
	if flags.subtests {
		opts = append(opts, gotest.WithSubtests())
	}
	conv := gotest.NewConverter(s.Handler, opts...)

	var results []*record.Result
	err = eachInput(a.stdin, files, func(_ string, r io.Reader) error {
		res, err := conv.Convert(ctx, r)
		results = append(results, res...)
		return err
	})
	if err != nil {
		return err
	}
	if n := conv.InFlight(); n > 0 {
		a.out.Warning("%d tests started but never finished", n)
	}
	if len(results) == 0 {
		a.out.Warning("no test results found in input")
		a.out.Hint("hint: use 'go test -json ./...' to produce JSON output")
		return nil
	}
	a.out.Info("Recorded %d results to %s", len(results), s.Writer.Path())

	failed := printSummaryIf(a, flags.summary, results)
	if failed && flags.failOnFailures {
		return &exitCodeError{code: 1}
	}
	return nil
}
