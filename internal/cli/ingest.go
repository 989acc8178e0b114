package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/events"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/session"
)

type ingestFlags struct {
	reruns int
}

func newIngestCmd(a *app) *cobra.Command {
	flags := &ingestFlags{reruns: -1}
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Record phase events into the worker result file",
		Long: `Reads JSON-lines phase events, one object per line with an "item" and a
"report", and writes one result record per completed test attempt to the
worker file. With no file, or "-", events are read from stdin.`,
		Example: `  my-runner --events | aqareport ingest --worker-id gw0
  aqareport ingest events-gw0.jsonl events-gw1.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd.Context(), args, flags)
		},
	}
	cmd.Flags().IntVar(&flags.reruns, "reruns", flags.reruns, "Number of reruns of a failed test (default from config)")
	return cmd
}

func (a *app) session(reruns int) (*session.Session, error) {
	if reruns >= 0 {
		a.cfg.Results.Reruns = reruns
	}
	return session.New(a.cfg, a.log)
}

func (a *app) runIngest(ctx context.Context, files []string, flags *ingestFlags) error {
	s, err := a.session(flags.reruns)
	if err != nil {
		return configError(err)
	}
	dec := events.NewDecoder(s.Handler, a.log)

	var results []*record.Result
	err = eachInput(a.stdin, files, func(name string, r io.Reader) error {
		res, err := dec.Decode(ctx, name, r)
		results = append(results, res...)
		return err
	})
	if err != nil {
		return err
	}
	if n := s.Handler.InFlight(); n > 0 {
		a.out.Warning("%d test attempts did not report teardown", n)
	}
	a.out.Info("Recorded %d results to %s", len(results), s.Writer.Path())
	return nil
}

// eachInput calls fn for every named file, or for stdin when files is
// empty or "-".
func eachInput(stdin io.Reader, files []string, fn func(name string, r io.Reader) error) error {
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, name := range files {
		if name == "-" {
			if err := fn("stdin", stdin); err != nil {
				return err
			}
			continue
		}
		f, err := os.Open(name)
		if err != nil {
			return aqaerrors.NotFound("input file", name)
		}
		err = fn(name, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
