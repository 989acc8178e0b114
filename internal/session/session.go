// Package session wires one worker process: the result writer, the
// lifecycle handler and the helpers tests use while they run.
package session

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/Goraved/aqareport/internal/config"
	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/screenshot"
	"github.com/Goraved/aqareport/internal/store"
	"github.com/Goraved/aqareport/internal/timing"
)

// Session holds the per-process state of a worker.
type Session struct {
	Config  *config.Config
	Writer  *store.Writer
	Handler *lifecycle.Handler
	Log     logr.Logger
}

// New builds a session from a resolved configuration.
func New(cfg *config.Config, log logr.Logger) (*Session, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	workerID := cfg.Results.WorkerID
	if err := config.ValidateWorkerID(workerID); err != nil {
		return nil, err
	}
	log = log.WithValues("worker", workerID)

	writerOpts := []store.WriterOption{store.WithLogger(log)}
	if cfg.Results.ValidateRecords {
		writerOpts = append(writerOpts, store.WithValidation())
	}
	writer := store.NewWriter(cfg.Results.Dir, workerID, writerOpts...)

	limit := screenshot.DefaultLimit
	if cfg.Results.ScreenshotLimit != nil {
		limit = *cfg.Results.ScreenshotLimit
	}
	h, err := lifecycle.New(lifecycle.Options{
		MaxReruns:   cfg.Results.Reruns,
		Builder:     record.NewBuilder(workerID, cfg.Project.SourceURL),
		Screenshots: screenshot.NewBudget(limit),
		Sink:        writer,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return &Session{Config: cfg, Writer: writer, Handler: h, Log: log}, nil
}

// TimingLog returns a new execution log for one test.
func (s *Session) TimingLog() *timing.Log {
	opts := []timing.Option{timing.WithLogger(s.Log)}
	if len(s.Config.Results.TimingExclude) > 0 {
		opts = append(opts, timing.WithExclude(s.Config.Results.TimingExclude))
	}
	return timing.NewLog(opts...)
}

// LaunchBrowser starts a Chrome page configured by the browser section.
func (s *Session) LaunchBrowser(ctx context.Context) (*screenshot.ChromePage, context.CancelFunc, error) {
	b := s.Config.Browser
	headless := true
	if b.Headless != nil {
		headless = *b.Headless
	}
	page, cancel, err := screenshot.Launch(ctx, screenshot.LaunchOptions{Headless: headless, Width: b.Width, Height: b.Height})
	if err != nil {
		return nil, nil, &aqaerrors.ReportError{Kind: aqaerrors.KindEnvironment, Message: "launch browser", Cause: err}
	}
	return page, cancel, nil
}
