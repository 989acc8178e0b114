// Package output provides formatted console output for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool

	green, red, yellow, cyan, dim, title *color.Color
}

// New creates a Writer for stdout and stderr. Colors follow the terminal
// detection of fatih/color, which also honors NO_COLOR.
func New() *Writer {
	return NewWithWriters(os.Stdout, os.Stderr, !color.NoColor)
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, useColor bool) *Writer {
	w := &Writer{
		out:    out,
		err:    err,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
		dim:    color.New(color.Faint),
		title:  color.New(color.Bold, color.FgCyan),
	}
	w.SetColor(useColor)
	return w
}

// SetColor enables or disables colored output.
func (w *Writer) SetColor(enabled bool) {
	w.color = enabled
	for _, c := range []*color.Color{w.green, w.red, w.yellow, w.cyan, w.dim, w.title} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Out returns the stdout writer.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...any) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...any) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...any) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Success prints a success message (skipped in quiet mode).
func (w *Writer) Success(format string, args ...any) {
	if w.quiet {
		return
	}
	w.Println("%s", w.green.Sprintf(format, args...))
}

// Warning prints a warning message to stderr.
func (w *Writer) Warning(format string, args ...any) {
	w.Errorln("%s %s", w.yellow.Sprint("warning:"), fmt.Sprintf(format, args...))
}

// ErrorPrefix prints an error message with the aqareport prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...any) {
	w.Errorln("%s %s", w.red.Sprint("aqareport:"), fmt.Sprintf(format, args...))
}

// Hint prints a dimmed hint to stderr.
func (w *Writer) Hint(format string, args ...any) {
	w.Errorln("%s", w.dim.Sprintf(format, args...))
}

// Section prints a section header.
func (w *Writer) Section(title string) {
	if w.quiet {
		return
	}
	w.Println("")
	w.Println("%s", w.title.Sprintf("=== %s ===", title))
}

// List prints a list of items.
func (w *Writer) List(items []string) {
	for _, item := range items {
		w.Println("  - %s", item)
	}
}

// Table prints a simple table.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, 0, len(widths))
		for i, cell := range cells {
			if i < len(widths) {
				parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	w.Println("%s", line(headers))
	seps := make([]string, len(widths))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	w.Println("%s", line(seps))
	for _, row := range rows {
		w.Println("%s", line(row))
	}
}

// Outcome colors a test outcome name by severity.
func (w *Writer) Outcome(outcome string) string {
	switch outcome {
	case "passed":
		return w.green.Sprint(outcome)
	case "failed", "error":
		return w.red.Sprint(outcome)
	case "rerun", "xpassed":
		return w.yellow.Sprint(outcome)
	default:
		return w.dim.Sprint(outcome)
	}
}

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	w.Println("")
	w.Println("%s", w.title.Sprintf("=== %s ===", title))
	w.Println("")
}

// SummaryItem prints a labeled summary item with value.
func (w *Writer) SummaryItem(label, value string) {
	w.Println("  %s %s", w.dim.Sprint(label+":"), value)
}

// SummaryPassed prints a passed items summary.
func (w *Writer) SummaryPassed(label, value string) {
	w.Println("  %s %s", w.dim.Sprint(label+":"), w.green.Sprint(value))
}

// SummaryFailed prints a failed items summary.
func (w *Writer) SummaryFailed(label, value string) {
	w.Println("  %s %s", w.dim.Sprint(label+":"), w.red.Sprint(value))
}

// SummarySectionLabel prints a label for a summary section.
func (w *Writer) SummarySectionLabel(label string) {
	w.Println("  %s", w.dim.Sprint(label))
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...any) {
	w.Println("")
	w.Println("%s", w.green.Sprintf(format, args...))
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...any) {
	w.Println("")
	w.Println("%s", w.red.Sprintf(format, args...))
}
