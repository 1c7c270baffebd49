package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultCompleted      ResultLabel = "completed"
	ResultCompletedEmpty ResultLabel = "completed_empty"
	ResultFailed         ResultLabel = "failed"
	ResultSkipped        ResultLabel = "skipped"
)

// Recorder defines observability hooks for steps, invocations, watches and reloads.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	IncStepResult(step string, result ResultLabel)
	ObserveInvocationDuration(target string, d time.Duration)
	IncInvocationOutcome(target string, ok bool)
	IncWatchTrigger(target string)
	IncReload()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration)       {}
func (NoopRecorder) IncStepResult(string, ResultLabel)               {}
func (NoopRecorder) ObserveInvocationDuration(string, time.Duration) {}
func (NoopRecorder) IncInvocationOutcome(string, bool)               {}
func (NoopRecorder) IncWatchTrigger(string)                          {}
func (NoopRecorder) IncReload()                                      {}
