package taskgraph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// WorkFunc is the body of a step. It must always return; errors a step can
// recover from belong in Result.Warnings, not in a Failed result.
type WorkFunc func(ctx context.Context) Result

// Deps declares the ordering constraints of a node.
type Deps struct {
	// Sequential runs left to right, each to full completion.
	Sequential []string
	// Concurrent runs as one barrier after Sequential.
	Concurrent []string
}

func (d Deps) all() []string {
	out := make([]string, 0, len(d.Sequential)+len(d.Concurrent))
	out = append(out, d.Sequential...)
	return append(out, d.Concurrent...)
}

type node struct {
	name string
	deps Deps
	work WorkFunc
	mu   sync.Mutex // held while work runs when steps are serialized
}

// Graph is the registry of named nodes.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*node
	order     []string
	logger    *slog.Logger
	observers []Observer
	serialize bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for step lifecycle lines.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(g *Graph) { g.observers = append(g.observers, o) }
}

// WithSerializedSteps makes overlapping invocations of the same step wait for
// each other instead of running concurrently.
func WithSerializedSteps() Option {
	return func(g *Graph) { g.serialize = true }
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{nodes: map[string]*node{}, logger: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Define registers a node. References to nodes defined later are allowed; a
// definition that would close a cycle is rejected.
func (g *Graph) Define(name string, deps Deps, work WorkFunc) error {
	if name == "" {
		return ferrors.ConfigError("step name is required").Build()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[name]; exists {
		return ferrors.ConfigError("duplicate step name").WithContext("step", name).Build()
	}
	for _, dep := range deps.all() {
		if dep == "" {
			return ferrors.ConfigError("empty dependency name").WithContext("step", name).Build()
		}
		if dep == name {
			return ferrors.ConfigError("step depends on itself").WithContext("step", name).Build()
		}
	}
	n := &node{name: name, deps: Deps{
		Sequential: slices.Clone(deps.Sequential),
		Concurrent: slices.Clone(deps.Concurrent),
	}, work: work}
	g.nodes[name] = n
	if path := g.cycleFrom(name); path != nil {
		delete(g.nodes, name)
		return ferrors.ConfigError("dependency cycle").
			WithContext("step", name).
			WithContext("cycle", fmt.Sprint(path)).Build()
	}
	g.order = append(g.order, name)
	return nil
}

// MustDefine is Define for static wiring; it panics on error.
func (g *Graph) MustDefine(name string, deps Deps, work WorkFunc) {
	if err := g.Define(name, deps, work); err != nil {
		panic(err)
	}
}

// cycleFrom returns a path start -> ... -> start when one exists. Caller holds g.mu.
func (g *Graph) cycleFrom(start string) []string {
	visited := map[string]bool{}
	var path []string
	var visit func(name string) bool
	visit = func(name string) bool {
		n, ok := g.nodes[name]
		if !ok {
			return false
		}
		for _, dep := range n.deps.all() {
			if dep == start {
				path = append(path, name, dep)
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if visit(dep) {
				path = append([]string{name}, path...)
				return true
			}
		}
		return false
	}
	if visit(start) {
		return path
	}
	return nil
}

// Has reports whether name is defined.
func (g *Graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// Names returns node names in definition order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.order)
}

// Validate checks that every referenced node is defined.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validateLocked(g.order)
}

func (g *Graph) validateLocked(entries []string) error {
	seen := map[string]bool{}
	stack := slices.Clone(entries)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[name] {
			continue
		}
		seen[name] = true
		n, ok := g.nodes[name]
		if !ok {
			return ferrors.GraphError("unknown step").WithContext("step", name).Build()
		}
		stack = append(stack, n.deps.all()...)
	}
	return nil
}

// NodeInfo describes a node for display.
type NodeInfo struct {
	Name       string
	Sequential []string
	Concurrent []string
	Composite  bool
}

// Describe returns all nodes sorted by name.
func (g *Graph) Describe() []NodeInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]NodeInfo, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, NodeInfo{
			Name:       n.name,
			Sequential: slices.Clone(n.deps.Sequential),
			Concurrent: slices.Clone(n.deps.Concurrent),
			Composite:  n.work == nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *Graph) node(name string) *node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[name]
}
