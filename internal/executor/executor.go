// Package executor turns optimizer batches into handler calls. For each
// batch it probes the handler for a native bulk method; if one exists the
// whole batch goes out as a single call, otherwise it falls back to one
// call per descriptor. The two paths fail differently on purpose: a bulk
// call failure fails the entire batch as a unit, while the fallback path
// isolates failures per descriptor. Both paths report one Outcome per
// descriptor so callers never branch on which path ran.
package executor

import "fmt"

// Outcome records the result of executing one batch descriptor.
type Outcome struct {
	Target string `json:"target"`
	Bulk   bool   `json:"bulk"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the outcomes of one executed batch.
type BatchResult struct {
	BatchSize int       `json:"batch_size"`
	Bulk      bool      `json:"bulk"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Succeeded reports how many descriptors executed without error.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

// bulkOutcomes expands one bulk call result into per-descriptor outcomes.
// On bulk failure every descriptor in the batch fails; there is no
// partial credit and no rollback of side effects the call may have
// committed before it returned the error.
func bulkOutcomes(targets []string, result any, err error) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))
	for _, target := range targets {
		o := Outcome{Target: target, Bulk: true}
		if err != nil {
			o.Error = err.Error()
		} else {
			o.OK = true
			o.Result = result
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// singleOutcome wraps one fallback call result.
func singleOutcome(target string, result any, err error) Outcome {
	o := Outcome{Target: target}
	if err != nil {
		o.Error = err.Error()
	} else {
		o.OK = true
		o.Result = result
	}
	return o
}

// unsupported builds per-descriptor failures for a handler that lacks
// both the bulk and the single-item contract for a batch kind.
func unsupported(targets []string, kind string) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))
	for _, target := range targets {
		outcomes = append(outcomes, Outcome{
			Target: target,
			Error:  fmt.Sprintf("handler does not support %s", kind),
		})
	}
	return outcomes
}
