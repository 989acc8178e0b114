// Package stats computes aggregate statistics over result records.
package stats

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Goraved/aqareport/internal/record"
)

// Defaults for slow-step analysis.
const (
	DefaultSlowStepSeconds  = 10.0
	DefaultSlowStepMinCount = 3
)

// Stats summarizes a run. It is recomputed from all records every time.
type Stats struct {
	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Skipped       int     `json:"skipped"`
	Error         int     `json:"error"`
	XFailed       int     `json:"xfailed"`
	XPassed       int     `json:"xpassed"`
	Rerun         int     `json:"rerun"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	TotalDuration float64 `json:"total_duration"`
	SuccessRate   float64 `json:"success_rate"`

	SlowFunctions []SlowFunction `json:"slow_functions,omitempty"`
	Summary       string         `json:"summary,omitempty"`
}

// Count returns the number of records with the given outcome.
func (s Stats) Count(o record.Outcome) int {
	switch o {
	case record.OutcomePassed:
		return s.Passed
	case record.OutcomeFailed:
		return s.Failed
	case record.OutcomeSkipped:
		return s.Skipped
	case record.OutcomeError:
		return s.Error
	case record.OutcomeXFailed:
		return s.XFailed
	case record.OutcomeXPassed:
		return s.XPassed
	case record.OutcomeRerun:
		return s.Rerun
	}
	return 0
}

// HasFailures reports whether any record failed or errored.
func (s Stats) HasFailures() bool {
	return s.Failed+s.Error > 0
}

// Calculate computes the statistics of results. Empty input yields zeros.
func Calculate(results []*record.Result) Stats {
	if len(results) == 0 {
		return Stats{}
	}
	s := Stats{Total: len(results), StartTime: math.Inf(1), EndTime: math.Inf(-1)}
	for _, r := range results {
		switch r.Outcome {
		case record.OutcomePassed:
			s.Passed++
		case record.OutcomeFailed:
			s.Failed++
		case record.OutcomeSkipped:
			s.Skipped++
		case record.OutcomeError:
			s.Error++
		case record.OutcomeXFailed:
			s.XFailed++
		case record.OutcomeXPassed:
			s.XPassed++
		case record.OutcomeRerun:
			s.Rerun++
		}
		s.StartTime = math.Min(s.StartTime, r.Timestamp)
		s.EndTime = math.Max(s.EndTime, r.End())
	}
	s.TotalDuration = s.EndTime - s.StartTime
	s.SuccessRate = round2(float64(s.Passed) / float64(s.Total) * 100)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SlowFunction is an execution-log step that was repeatedly slow.
type SlowFunction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

var secondsPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// SlowFunctions scans the logs of every record for "<name>: <seconds>"
// lines slower than threshold seconds. Steps slow at least minCount times
// are returned, most frequent first.
func SlowFunctions(results []*record.Result, threshold float64, minCount int) []SlowFunction {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		for _, line := range r.Logs {
			parts := strings.Split(strings.TrimSpace(line), ": ")
			if len(parts) != 2 {
				continue
			}
			m := secondsPattern.FindString(parts[1])
			if m == "" {
				continue
			}
			seconds, err := strconv.ParseFloat(m, 64)
			if err != nil || seconds <= threshold {
				continue
			}
			name := strings.TrimSpace(parts[0])
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	var out []SlowFunction
	for _, name := range order {
		if counts[name] >= minCount {
			out = append(out, SlowFunction{Name: name, Count: counts[name]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// FormatTimestamp renders unix seconds as local "2006-01-02 15:04:05".
func FormatTimestamp(ts float64) string {
	return record.FromSeconds(ts).Local().Format(time.DateTime)
}

// FormatDuration renders seconds as H:MM:SS.
func FormatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
