package taskgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Report summarizes one invocation.
type Report struct {
	ID       string
	Targets  []string
	Started  time.Time
	Finished time.Time
	// Err is the first unrecovered failure, nil when the invocation succeeded.
	Err     error
	Results map[string]Result
}

// Target returns the entry names joined for labels and log lines.
func (r *Report) Target() string { return strings.Join(r.Targets, ",") }

// Warnings returns the number of recovered processing errors across all steps.
func (r *Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Warnings)
	}
	return n
}

type nodeRun struct {
	done chan struct{}
	res  Result
}

type invocation struct {
	g   *Graph
	id  string
	log *slog.Logger

	mu      sync.Mutex
	runs    map[string]*nodeRun
	results map[string]Result
	err     error
}

// Run executes the entry nodes as one concurrent barrier and returns when every
// reachable node has finished or the invocation halted on a failure.
func (g *Graph) Run(ctx context.Context, entries ...string) (*Report, error) {
	rep := &Report{
		ID:      uuid.NewString(),
		Targets: append([]string(nil), entries...),
		Started: time.Now(),
		Results: map[string]Result{},
	}
	g.mu.RLock()
	verr := g.validateLocked(entries)
	g.mu.RUnlock()
	if len(entries) == 0 {
		verr = ferrors.GraphError("no steps to run").Build()
	}
	if verr != nil {
		rep.Err = verr
		rep.Finished = time.Now()
		return rep, verr
	}

	inv := &invocation{
		g:       g,
		id:      rep.ID,
		log:     g.logger.With(logfields.Invocation(rep.ID)),
		runs:    map[string]*nodeRun{},
		results: map[string]Result{},
	}
	inv.log.Debug("Invocation started", logfields.Target(rep.Target()))

	inv.barrier(ctx, entries)

	inv.mu.Lock()
	rep.Err = inv.err
	for k, v := range inv.results {
		rep.Results[k] = v
	}
	inv.mu.Unlock()
	rep.Finished = time.Now()

	if rep.Err != nil {
		inv.log.Error("Invocation failed", logfields.Target(rep.Target()), logfields.Error(rep.Err))
	} else {
		inv.log.Info("Invocation finished",
			logfields.Target(rep.Target()),
			logfields.Duration(rep.Finished.Sub(rep.Started)),
			slog.Int("warnings", rep.Warnings()))
	}
	for _, o := range g.observers {
		o.OnInvocationComplete(rep)
	}
	return rep, rep.Err
}

// RunAsync starts an invocation in the background; onDone is called exactly once.
func (g *Graph) RunAsync(ctx context.Context, entries []string, onDone func(*Report)) {
	go func() {
		rep, _ := g.Run(ctx, entries...)
		if onDone != nil {
			onDone(rep)
		}
	}()
}

// halted reports whether scheduling must stop. A canceled context halts the
// invocation as a failure, since the remaining steps never run.
func (inv *invocation) halted(ctx context.Context) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.err == nil && ctx.Err() != nil {
		inv.err = ferrors.WrapError(ctx.Err(), ferrors.CategoryGraph, "invocation canceled").
			WithContext("invocation", inv.id).Build()
	}
	return inv.err != nil
}

func (inv *invocation) fail(step string, err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.err != nil {
		return
	}
	inv.err = ferrors.WrapError(err, ferrors.CategoryGraph, "step failed").
		WithContext("step", step).
		WithContext("invocation", inv.id).Build()
}

func (inv *invocation) record(name string, res Result) {
	inv.mu.Lock()
	inv.results[name] = res
	inv.mu.Unlock()
}

// barrier runs names concurrently and reports whether all of them succeeded.
func (inv *invocation) barrier(ctx context.Context, names []string) bool {
	var eg errgroup.Group
	for _, name := range names {
		eg.Go(func() error {
			if res := inv.run(ctx, name); !res.OK() {
				return fmt.Errorf("%s: %s", name, res.Status)
			}
			return nil
		})
	}
	return eg.Wait() == nil
}

// run executes name at most once per invocation; later callers wait for the first.
func (inv *invocation) run(ctx context.Context, name string) Result {
	inv.mu.Lock()
	if r, ok := inv.runs[name]; ok {
		inv.mu.Unlock()
		<-r.done
		return r.res
	}
	r := &nodeRun{done: make(chan struct{})}
	inv.runs[name] = r
	inv.mu.Unlock()

	r.res = inv.execute(ctx, name)
	close(r.done)
	return r.res
}

func (inv *invocation) execute(ctx context.Context, name string) Result {
	n := inv.g.node(name)
	idle := Result{Status: StatusIdle}

	for _, dep := range n.deps.Sequential {
		if inv.halted(ctx) {
			return idle
		}
		if res := inv.run(ctx, dep); !res.OK() {
			return idle
		}
	}
	if len(n.deps.Concurrent) > 0 {
		if inv.halted(ctx) {
			return idle
		}
		if !inv.barrier(ctx, n.deps.Concurrent) {
			return idle
		}
	}

	if n.work == nil {
		res := Completed()
		inv.record(name, res)
		return res
	}
	if inv.halted(ctx) {
		return idle
	}
	return inv.runWork(ctx, n)
}

func (inv *invocation) runWork(ctx context.Context, n *node) Result {
	if inv.g.serialize {
		n.mu.Lock()
		defer n.mu.Unlock()
	}
	log := inv.log.With(logfields.Step(n.name))
	for _, o := range inv.g.observers {
		o.OnStepStart(inv.id, n.name)
	}
	log.Debug("Step started")

	t0 := time.Now()
	res := safeCall(ctx, n.work)
	dur := time.Since(t0)
	if res.Status == "" || res.Status == StatusIdle || res.Status == StatusRunning {
		res = Failed(fmt.Errorf("step returned non-terminal status %q", res.Status))
	}

	for _, w := range res.Warnings {
		log.Warn("Step recovered from processing error", logfields.Error(w))
	}
	switch res.Status {
	case StatusFailed:
		log.Error("Step failed", logfields.Duration(dur), logfields.Error(res.Err))
		inv.fail(n.name, res.Err)
	default:
		log.Info("Step finished", logfields.Result(string(res.Status)), logfields.Duration(dur))
	}

	inv.record(n.name, res)
	for _, o := range inv.g.observers {
		o.OnStepComplete(inv.id, n.name, dur, res)
	}
	return res
}

func safeCall(ctx context.Context, fn WorkFunc) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failed(ferrors.InternalError(fmt.Sprintf("step panicked: %v", p)).Build())
		}
	}()
	return fn(ctx)
}
