// Package store persists result records as one JSON line per attempt in a
// worker-scoped file, and reads them back for aggregation.
//
// Every worker process owns exactly one file, <dir>/worker_<id>.jsonl, so
// no locking across processes is needed.
package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/schema"
)

const (
	filePrefix = "worker_"
	fileExt    = ".jsonl"
)

// FileName returns the result file name of a worker.
func FileName(workerID string) string {
	return filePrefix + workerID + fileExt
}

// Writer appends records to the file of one worker.
type Writer struct {
	path     string
	workerID string
	validate bool
	log      logr.Logger

	mu sync.Mutex
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithValidation checks every record against the result schema before it
// is written.
func WithValidation() WriterOption {
	return func(w *Writer) { w.validate = true }
}

// WithLogger sets the logger of the writer.
func WithLogger(l logr.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// NewWriter creates a writer for dir/worker_<workerID>.jsonl.
func NewWriter(dir, workerID string, opts ...WriterOption) *Writer {
	if workerID == "" {
		workerID = record.DefaultWorkerID
	}
	w := &Writer{
		path:     filepath.Join(dir, FileName(workerID)),
		workerID: workerID,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Write appends r as a single JSON line, creating the directory and file
// as needed.
func (w *Writer) Write(_ context.Context, r *record.Result) error {
	line, err := json.Marshal(r)
	if err != nil {
		return aqaerrors.Wrap(err, "encode result record")
	}
	if w.validate {
		if err := schema.ValidateResult(line); err != nil {
			return &aqaerrors.ReportError{
				Kind:    aqaerrors.KindValidation,
				Worker:  w.workerID,
				File:    filepath.Base(w.path),
				Message: fmt.Sprintf("invalid result record for %s", r.NodeID),
				Cause:   err,
			}
		}
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return aqaerrors.Wrap(err, "create results directory")
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &aqaerrors.ReportError{Worker: w.workerID, File: filepath.Base(w.path), Message: "open result file", Cause: err}
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return &aqaerrors.ReportError{Worker: w.workerID, File: filepath.Base(w.path), Message: "append result", Cause: err}
	}
	if err := f.Close(); err != nil {
		return &aqaerrors.ReportError{Worker: w.workerID, File: filepath.Base(w.path), Message: "close result file", Cause: err}
	}
	w.log.V(1).Info("result written", "nodeid", r.NodeID, "outcome", r.Outcome, "file", w.path)
	return nil
}

// Files returns the worker files in dir, sorted by name.
func Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, aqaerrors.NotFound("results directory", dir)
		}
		return nil, aqaerrors.Wrap(err, "stat results directory")
	}
	if !info.IsDir() {
		return nil, aqaerrors.Newf("results path %s is not a directory", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, aqaerrors.Wrap(err, "list result files")
	}
	sort.Strings(matches)
	return matches, nil
}

// Aggregate reads every worker file in dir and returns the records
// deduplicated by (nodeid, timestamp), first seen wins. A missing
// directory is an error; a directory without files yields no records.
func Aggregate(dir string) ([]*record.Result, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	type key struct {
		nodeID    string
		timestamp float64
	}
	seen := make(map[key]bool)
	results := []*record.Result{}

	for _, path := range files {
		records, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			k := key{r.NodeID, r.Timestamp}
			if seen[k] {
				continue
			}
			seen[k] = true
			results = append(results, r)
		}
	}
	return results, nil
}

var requiredFields = []string{"nodeid", "timestamp", "outcome"}

func readFile(path string) ([]*record.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, aqaerrors.Wrap(err, "open result file")
	}
	defer f.Close()

	name := filepath.Base(path)
	var out []*record.Result
	reader := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			r, perr := parseLine(line)
			if perr != nil {
				return nil, aqaerrors.Invalid(name, fmt.Sprintf("line %d", lineNo), perr)
			}
			out = append(out, r)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, aqaerrors.Wrap(err, "read "+name)
		}
	}
}

func parseLine(line []byte) (*record.Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var missing []string
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("result missing %s", strings.Join(missing, ", "))
	}
	var r record.Result
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("invalid result record: %w", err)
	}
	return &r, nil
}

// Clean removes the worker files in dir and returns how many were removed.
func Clean(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileExt))
	if err != nil {
		return 0, aqaerrors.Wrap(err, "list result files")
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, aqaerrors.Wrap(err, "remove "+filepath.Base(path))
		}
		removed++
	}
	return removed, nil
}
