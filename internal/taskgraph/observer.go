package taskgraph

import (
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Observer receives step lifecycle callbacks. Callbacks may arrive concurrently.
type Observer interface {
	OnStepStart(invocation, step string)
	OnStepComplete(invocation, step string, d time.Duration, res Result)
	OnInvocationComplete(rep *Report)
}

// NoopObserver ignores all callbacks.
type NoopObserver struct{}

func (NoopObserver) OnStepStart(string, string)                            {}
func (NoopObserver) OnStepComplete(string, string, time.Duration, Result) {}
func (NoopObserver) OnInvocationComplete(*Report)                         {}

// RecorderObserver forwards lifecycle events to a metrics.Recorder.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (RecorderObserver) OnStepStart(string, string) {}

func (r RecorderObserver) OnStepComplete(_ string, step string, d time.Duration, res Result) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStepDuration(step, d)
	r.Recorder.IncStepResult(step, resultLabel(res))
}

func (r RecorderObserver) OnInvocationComplete(rep *Report) {
	if r.Recorder == nil || rep == nil {
		return
	}
	target := rep.Target()
	r.Recorder.ObserveInvocationDuration(target, rep.Finished.Sub(rep.Started))
	r.Recorder.IncInvocationOutcome(target, rep.Err == nil)
}

func resultLabel(res Result) metrics.ResultLabel {
	switch res.Status {
	case StatusCompleted:
		return metrics.ResultCompleted
	case StatusCompletedEmpty:
		return metrics.ResultCompletedEmpty
	case StatusFailed:
		return metrics.ResultFailed
	default:
		return metrics.ResultSkipped
	}
}
