// Package events decodes phase events written as JSON lines by test
// frameworks running outside this process, and feeds them into the
// lifecycle handler.
//
// Each line holds one phase report together with the test it belongs to:
//
//	{"item": {"nodeid": "tests/cart.spec::add", "attempt": 1},
//	 "report": {"phase": "call", "outcome": "failed", "duration": 1.2,
//	            "exception": "assertion", "longrepr": "expected 1, got 0"}}
package events

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/lifecycle"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/timing"
)

// Event is one phase report of one test attempt.
type Event struct {
	Item   Item   `json:"item"`
	Report Report `json:"report"`
}

// Item describes the test.
type Item struct {
	NodeID       string         `json:"nodeid" validate:"required"`
	Attempt      int            `json:"attempt" validate:"gte=0"`
	Description  string         `json:"description,omitempty"`
	Markers      []string       `json:"markers,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
	Line         int            `json:"line,omitempty" validate:"gte=0"`
	CaseLink     string         `json:"case_link,omitempty" validate:"omitempty,url"`
	CaseID       string         `json:"case_id,omitempty"`
	Logs         []string       `json:"logs,omitempty"`
	ExecutionLog []LogEntry     `json:"execution_log,omitempty" validate:"dive"`
	SoftFailures []string       `json:"soft_failures,omitempty"`
	Page         *Page          `json:"page,omitempty"`
}

// LogEntry is a timed execution-log line.
type LogEntry struct {
	Start time.Time `json:"start" validate:"required"`
	Text  string    `json:"text" validate:"required"`
}

// Page is the browser state captured by the framework at report time.
type Page struct {
	URL            string `json:"url,omitempty"`
	Screenshot     string `json:"screenshot,omitempty" validate:"omitempty,base64"`
	BrowserName    string `json:"browser_name,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
}

// Report is the outcome of one phase.
type Report struct {
	Phase        string    `json:"phase" validate:"required,oneof=setup call teardown"`
	Outcome      string    `json:"outcome" validate:"required,oneof=passed failed skipped"`
	Start        time.Time `json:"start"`
	Duration     float64   `json:"duration" validate:"gte=0"`
	Exception    string    `json:"exception,omitempty" validate:"omitempty,oneof=none assertion fail other"`
	XFail        bool      `json:"xfail,omitempty"`
	XFailReason  string    `json:"xfail_reason,omitempty"`
	LongRepr     string    `json:"longrepr,omitempty"`
	CrashMessage string    `json:"crash_message,omitempty"`
	TypeName     string    `json:"type_name,omitempty"`
	SkipReason   string    `json:"skip_reason,omitempty"`
	CapLog       string    `json:"caplog,omitempty"`
	CapStderr    string    `json:"capstderr,omitempty"`
	CapStdout    string    `json:"capstdout,omitempty"`
}

// Processor consumes phase reports. *lifecycle.Handler implements it.
type Processor interface {
	Process(ctx context.Context, item *lifecycle.Item, rep *lifecycle.Report) (*record.Result, error)
}

// Decoder validates events and hands them to a Processor.
type Decoder struct {
	proc     Processor
	validate *validator.Validate
	log      logr.Logger
}

// NewDecoder creates a decoder feeding proc.
func NewDecoder(proc Processor, log logr.Logger) *Decoder {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Decoder{proc: proc, validate: validator.New(validator.WithRequiredStructEnabled()), log: log}
}

// Decode reads events from r until EOF. name identifies the stream in
// errors. A malformed or invalid line stops decoding.
func (d *Decoder) Decode(ctx context.Context, name string, r io.Reader) ([]*record.Result, error) {
	var results []*record.Result
	reader := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		line, readErr := reader.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) > 0 {
			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				return results, aqaerrors.Invalid(name, fmt.Sprintf("line %d", lineNo), fmt.Errorf("invalid JSON: %w", err))
			}
			res, err := d.Handle(ctx, &ev)
			if err != nil {
				var verr validator.ValidationErrors
				if errors.As(err, &verr) {
					return results, aqaerrors.Invalid(name, fmt.Sprintf("line %d", lineNo), err)
				}
				return results, err
			}
			if res != nil {
				results = append(results, res)
			}
		}
		if readErr == io.EOF {
			return results, nil
		}
		if readErr != nil {
			return results, aqaerrors.Wrap(readErr, "read "+name)
		}
	}
}

// Handle validates one event and processes it.
func (d *Decoder) Handle(ctx context.Context, ev *Event) (*record.Result, error) {
	if err := d.validate.Struct(ev); err != nil {
		return nil, err
	}
	item, err := ev.Item.lifecycleItem()
	if err != nil {
		return nil, err
	}
	rep := ev.Report.lifecycleReport()
	d.log.V(2).Info("event", "nodeid", item.NodeID, "phase", rep.Phase, "outcome", rep.Outcome)
	return d.proc.Process(ctx, item, rep)
}

func (it Item) lifecycleItem() (*lifecycle.Item, error) {
	item := &lifecycle.Item{
		NodeID:      it.NodeID,
		Attempt:     it.Attempt,
		Description: it.Description,
		Markers:     it.Markers,
		Meta:        it.Meta,
		Line:        it.Line,
		CaseLink:    it.CaseLink,
		CaseID:      it.CaseID,
		Logs:        it.Logs,
	}
	for _, e := range it.ExecutionLog {
		item.ExecutionLog = append(item.ExecutionLog, timing.Entry{Start: e.Start, Text: e.Text})
	}
	if len(it.SoftFailures) > 0 {
		item.SoftAssert = softFailures(it.SoftFailures)
	}
	if it.Page != nil {
		p, err := newStaticPage(it.Page)
		if err != nil {
			return nil, err
		}
		item.Page = p
	}
	return item, nil
}

func (r Report) lifecycleReport() *lifecycle.Report {
	return &lifecycle.Report{
		Phase:        record.Phase(r.Phase),
		Outcome:      record.Outcome(r.Outcome),
		Start:        r.Start,
		Duration:     time.Duration(r.Duration * float64(time.Second)),
		Exception:    lifecycle.ParseExceptionKind(r.Exception),
		XFail:        r.XFail,
		XFailReason:  r.XFailReason,
		LongRepr:     r.LongRepr,
		CrashMessage: r.CrashMessage,
		TypeName:     r.TypeName,
		SkipReason:   r.SkipReason,
		CapLog:       r.CapLog,
		CapStderr:    r.CapStderr,
		CapStdout:    r.CapStdout,
	}
}

type softFailures []string

func (s softFailures) HasFailures() bool { return len(s) > 0 }
func (s softFailures) Failures() []string { return append([]string(nil), s...) }

// staticPage replays browser state captured by the framework.
type staticPage struct {
	url     string
	image   []byte
	browser record.BrowserInfo
}

var errNoScreenshot = errors.New("no screenshot in event")

func newStaticPage(p *Page) (*staticPage, error) {
	sp := &staticPage{url: p.URL, browser: record.BrowserInfo{Name: p.BrowserName, Version: p.BrowserVersion}}
	if p.Screenshot != "" {
		img, err := base64.StdEncoding.DecodeString(p.Screenshot)
		if err != nil {
			return nil, fmt.Errorf("decode screenshot: %w", err)
		}
		sp.image = img
	}
	return sp, nil
}

func (p *staticPage) URL(context.Context) (string, error) { return p.url, nil }

func (p *staticPage) Screenshot(context.Context) ([]byte, error) {
	if p.image == nil {
		return nil, errNoScreenshot
	}
	return p.image, nil
}

func (p *staticPage) BrowserInfo(context.Context) (record.BrowserInfo, error) {
	if p.browser.Name == "" {
		return record.UnknownBrowser, nil
	}
	return p.browser, nil
}
