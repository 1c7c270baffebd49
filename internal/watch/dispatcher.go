package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// DefaultDebounce is the quiet period before a target fires.
const DefaultDebounce = 300 * time.Millisecond

// Runner starts graph invocations.
type Runner interface {
	RunAsync(ctx context.Context, entries []string, onDone func(*taskgraph.Report))
}

type rule struct {
	target  string
	pattern *Pattern
}

// Dispatcher routes change events to targets.
type Dispatcher struct {
	runner   Runner
	debounce time.Duration
	logger   *slog.Logger
	recorder metrics.Recorder
	onDone   func(*taskgraph.Report)

	mu     sync.Mutex
	rules  []rule
	timers map[string]*time.Timer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(x *Dispatcher) { x.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Dispatcher) { x.logger = l }
}

// WithRecorder counts triggers per target.
func WithRecorder(r metrics.Recorder) Option {
	return func(x *Dispatcher) { x.recorder = r }
}

// WithOnDone is called with the report of every triggered invocation.
func WithOnDone(fn func(*taskgraph.Report)) Option {
	return func(x *Dispatcher) { x.onDone = fn }
}

// New creates a Dispatcher that starts invocations on runner.
func New(runner Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		timers:   map[string]*time.Timer{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Watch maps globs to target. Globs starting with "!" exclude matches of the
// others. Several Watch calls may name the same target.
func (d *Dispatcher) Watch(target string, globs ...string) error {
	p, err := Compile(globs...)
	if err != nil {
		return ferrors.WatchError("invalid watch pattern").WithCause(err).
			WithContext("target", target).Build()
	}
	d.mu.Lock()
	d.rules = append(d.rules, rule{target: target, pattern: p})
	d.mu.Unlock()
	d.logger.Debug("Watching", logfields.Target(target), logfields.Glob(p.String()))
	return nil
}

// Targets returns the distinct targets matching path, sorted.
func (d *Dispatcher) Targets(path string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range d.rules {
		if !seen[r.target] && r.pattern.Match(path) {
			seen[r.target] = true
			out = append(out, r.target)
		}
	}
	sort.Strings(out)
	return out
}

// Dispatch schedules every target matching path and returns them.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) []string {
	targets := d.Targets(path)
	for _, t := range targets {
		d.schedule(ctx, t)
	}
	return targets
}

func (d *Dispatcher) schedule(ctx context.Context, target string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[target]; ok {
		t.Stop()
	}
	d.timers[target] = time.AfterFunc(d.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		d.logger.Info("Change detected; running", logfields.Target(target))
		d.recorder.IncWatchTrigger(target)
		d.runner.RunAsync(ctx, []string{target}, d.onDone)
	})
}

// Stop cancels pending debounced triggers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}

// Roots returns the directories to watch: the glob roots that exist, with
// file roots replaced by their parent directory.
func (d *Dispatcher) Roots() []string {
	roots := d.watchRoots()
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		out = append(out, r.dir)
	}
	return out
}

type watchRoot struct {
	dir       string
	recursive bool
}

// watchRoots resolves glob roots to directories. A file root only needs its
// parent watched, not the parent's whole tree.
func (d *Dispatcher) watchRoots() []watchRoot {
	d.mu.Lock()
	defer d.mu.Unlock()
	byDir := map[string]int{}
	var out []watchRoot
	for _, r := range d.rules {
		for _, root := range r.pattern.Roots() {
			fi, err := os.Stat(root)
			if err != nil {
				d.logger.Debug("Watch root missing", logfields.Path(root))
				continue
			}
			wr := watchRoot{dir: root, recursive: true}
			if !fi.IsDir() {
				wr = watchRoot{dir: filepath.Dir(root)}
			}
			if i, ok := byDir[wr.dir]; ok {
				out[i].recursive = out[i].recursive || wr.recursive
				continue
			}
			byDir[wr.dir] = len(out)
			out = append(out, wr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dir < out[j].dir })
	return out
}

// Run watches the roots and dispatches events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WatchError("create watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()
	defer d.Stop()

	for _, root := range d.watchRoots() {
		if root.recursive {
			d.addDirsRecursive(watcher, root.dir)
		} else if err := watcher.Add(root.dir); err != nil {
			d.logger.Warn("Watch add failed", logfields.Path(root.dir), logfields.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			d.handleEvent(ctx, watcher, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			d.addDirsRecursive(w, ev.Name)
		}
	}
	d.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	d.Dispatch(ctx, ev.Name)
}

func (d *Dispatcher) addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != root && skipDir(entry.Name()) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				d.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// shouldIgnoreEvent filters hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
