package taskgraph

import "fmt"

// Status is the state of a step within one invocation.
//
//	Idle -> Running -> Completed | CompletedEmpty | Failed
//
// A step that is still Idle when the invocation finishes was never started.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusCompleted      Status = "completed"
	StatusCompletedEmpty Status = "completed_empty"
	StatusFailed         Status = "failed"
)

// Result is what a step reports on completion.
type Result struct {
	Status Status
	// Err is set for Failed results.
	Err error
	// Warnings are processing errors the step recovered from.
	Warnings []error
	// Reason explains a CompletedEmpty result.
	Reason string
}

// Completed reports a successful step, optionally carrying recovered errors.
func Completed(warnings ...error) Result {
	return Result{Status: StatusCompleted, Warnings: compact(warnings)}
}

// Empty reports a step that had nothing to do (missing source, no inputs).
func Empty(reason string) Result {
	return Result{Status: StatusCompletedEmpty, Reason: reason}
}

// Failed reports an unrecovered failure; it halts the invocation.
func Failed(err error) Result {
	if err == nil {
		err = fmt.Errorf("step failed")
	}
	return Result{Status: StatusFailed, Err: err}
}

// OK reports graph success (Completed or CompletedEmpty).
func (r Result) OK() bool {
	return r.Status == StatusCompleted || r.Status == StatusCompletedEmpty
}

func (r Result) String() string {
	switch r.Status {
	case StatusFailed:
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	case StatusCompletedEmpty:
		if r.Reason != "" {
			return fmt.Sprintf("%s (%s)", r.Status, r.Reason)
		}
	case StatusCompleted:
		if n := len(r.Warnings); n > 0 {
			return fmt.Sprintf("%s with %d warning(s)", r.Status, n)
		}
	}
	return string(r.Status)
}

func compact(errs []error) []error {
	var out []error
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
