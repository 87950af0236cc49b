// Package eval interprets execution outcomes into search verdicts.
//
// The evaluator maps a raw sandbox outcome to (is_buggy, metric). The
// engine treats candidate code and its output as opaque except for one
// convention: a successful candidate must report its metric on stdout
// as a marker line, e.g.
//
//	METRIC: 0.8421
//
// A success without a parseable metric is a silent failure and counts
// as buggy, as do non-finite values.
package eval

import (
	"math"
	"strconv"
	"strings"

	"github.com/pithecene-io/grove/types"
)

// DefaultMetricPrefix is the default stdout marker for metric values.
const DefaultMetricPrefix = "METRIC:"

// Evaluator maps execution outcomes to (is_buggy, metric) verdicts.
type Evaluator struct {
	// Prefix is the stdout marker preceding the metric value.
	// Empty means DefaultMetricPrefix.
	Prefix string
}

// Verdict is the evaluation result for one execution outcome.
type Verdict struct {
	// IsBuggy is true when the outcome represents a failure of any kind.
	IsBuggy bool
	// Metric is the parsed scalar. Nil whenever IsBuggy is true.
	Metric *float64
}

// Evaluate maps an execution outcome to a verdict:
//   - timeout, runtime error, or generation error: buggy, no metric
//   - success without a parseable metric: buggy (silent failure)
//   - success with a non-finite metric: buggy
//   - success with a finite metric: good
func (e *Evaluator) Evaluate(outcome types.ExecOutcome) Verdict {
	if outcome.Status != types.ExecSuccess {
		return Verdict{IsBuggy: true}
	}

	value, ok := ParseMetric(e.prefix(), outcome.Stdout)
	if !ok {
		return Verdict{IsBuggy: true}
	}
	return Verdict{Metric: &value}
}

func (e *Evaluator) prefix() string {
	if e.Prefix == "" {
		return DefaultMetricPrefix
	}
	return e.Prefix
}

// ParseMetric extracts the metric value from captured stdout.
// The last marker line wins, so candidates may log intermediate values.
// Non-finite values (NaN, ±Inf) are rejected.
func ParseMetric(prefix, stdout string) (float64, bool) {
	var (
		value float64
		found bool
	)
	for _, line := range strings.SplitAfter(stdout, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			continue
		}
		value = v
		found = true
	}
	if !found || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
