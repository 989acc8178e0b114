// Package query runs jq expressions over aggregated result records.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/itchyny/gojq"

	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/record"
)

// Run evaluates expr with the array of results as input and returns every
// value the expression emits.
func Run(ctx context.Context, expr string, results []*record.Result) ([]any, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, aqaerrors.Invalid("query", fmt.Sprintf("parse %q", expr), err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, aqaerrors.Invalid("query", fmt.Sprintf("compile %q", expr), err)
	}
	input, err := toJQ(results)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return out, fmt.Errorf("evaluate %q: %w", expr, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// toJQ converts results into the plain maps and slices gojq operates on.
func toJQ(results []*record.Result) (any, error) {
	if results == nil {
		results = []*record.Result{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return v, nil
}

// Write prints values one per line. Strings are printed raw when raw is
// set, everything else as compact JSON.
func Write(w io.Writer, values []any, raw bool) error {
	for _, v := range values {
		if s, ok := v.(string); ok && raw {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
			continue
		}
		data, err := gojq.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}
