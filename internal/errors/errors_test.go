package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestReportError_Error(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	tests := []struct {
		name     string
		err      *ReportError
		expected string
	}{
		{
			name:     "message only",
			err:      &ReportError{Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "with file",
			err:      &ReportError{File: "worker_gw0.jsonl", Message: "invalid JSON"},
			expected: "worker_gw0.jsonl: invalid JSON",
		},
		{
			name:     "with worker and file",
			err:      &ReportError{Worker: "gw1", File: "worker_gw1.jsonl", Message: "write failed"},
			expected: "[gw1] worker_gw1.jsonl: write failed",
		},
		{
			name:     "with worker only",
			err:      &ReportError{Worker: "gw1", Message: "stopped"},
			expected: "[gw1] stopped",
		},
		{
			name:     "with cause",
			err:      &ReportError{File: "worker_master.jsonl", Message: "invalid JSON", Cause: cause},
			expected: "worker_master.jsonl: invalid JSON: unexpected end of JSON input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReportError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ReportError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}

	errNoCause := &ReportError{Message: "no cause"}
	if got := errNoCause.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestReportError_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		expected int
	}{
		{"runtime", KindRuntime, ExitRuntimeError},
		{"config", KindConfig, ExitConfigError},
		{"validation", KindValidation, ExitConfigError},
		{"not found", KindNotFound, ExitRuntimeError},
		{"environment", KindEnvironment, ExitEnvironmentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ReportError{Kind: tt.kind}
			if got := err.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	if err := Newf("error %d: %s", 42, "details"); err.Kind != KindRuntime || err.Message != "error 42: details" {
		t.Errorf("Newf() = %+v", err)
	}
	if err := Configf("field %q: %s", "reruns", "must be >= 0"); err.Kind != KindConfig || err.Message != `field "reruns": must be >= 0` {
		t.Errorf("Configf() = %+v", err)
	}
	if err := Environmentf("browser %s unavailable", "chromium"); err.ExitCode() != ExitEnvironmentError {
		t.Errorf("Environmentf().ExitCode() = %d", err.ExitCode())
	}
	if err := NotFound("results directory", "reports"); err.Message != "results directory not found: reports" {
		t.Errorf("NotFound().Message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(cause, "wrapped message")

	if err.Kind != KindRuntime {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRuntime)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the original cause")
	}
}

func TestInvalid(t *testing.T) {
	cause := errors.New("missing nodeid")
	err := Invalid("worker_gw0.jsonl", "invalid result record", cause)

	if err.ExitCode() != ExitConfigError {
		t.Errorf("ExitCode() = %d, want %d", err.ExitCode(), ExitConfigError)
	}
	if err.File != "worker_gw0.jsonl" {
		t.Errorf("File = %q", err.File)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},
		{"runtime", New("runtime"), ExitRuntimeError},
		{"config", Config("config"), ExitConfigError},
		{"validation", &ReportError{Kind: KindValidation}, ExitConfigError},
		{"wrapped report error", fmt.Errorf("outer: %w", Environment("no browser")), ExitEnvironmentError},
		{"generic error", errors.New("generic"), ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}
