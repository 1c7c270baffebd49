package steps

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metastore"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/buster"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/script"
)

// DefaultBowerDir is where third-party front-end packages are looked up.
const DefaultBowerDir = "bower_components"

// Reloader is notified after steps whose output the browser shows.
type Reloader interface {
	Reload()
}

// Env is shared by every step of one process run.
type Env struct {
	Config   *config.Resolved
	Store    *metastore.Store
	Tools    transform.Toolchain
	Logger   *slog.Logger
	BowerDir string
	Now      func() time.Time

	// Buster is nil unless cache-busting is enabled.
	Buster *buster.Buster

	mu       sync.RWMutex
	reloader Reloader
}

// NewEnv returns an Env with the default toolchain.
func NewEnv(cfg *config.Resolved, store *metastore.Store, logger *slog.Logger) *Env {
	if store == nil {
		store = metastore.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Env{
		Config:   cfg,
		Store:    store,
		Tools:    transform.Defaults(),
		Logger:   logger,
		BowerDir: DefaultBowerDir,
		Now:      time.Now,
	}
	if cfg.BusterEnabled() {
		e.Buster = buster.New(webRoot(cfg))
	}
	return e
}

// SetReloader installs the dev server once it is running.
func (e *Env) SetReloader(r Reloader) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reloader = r
}

func (e *Env) reload() {
	e.mu.RLock()
	r := e.reloader
	e.mu.RUnlock()
	if r != nil {
		r.Reload()
	}
}

func webRoot(cfg *config.Resolved) string {
	if cfg.External {
		return cfg.Destination[config.KeyExternalPath]
	}
	return cfg.Destination[config.KeyPath]
}

func (e *Env) scriptOptions() script.Options {
	return script.Options{Production: e.Config.Production}
}

func (e *Env) log(step string) *slog.Logger {
	return e.Logger.With(logfields.Step(step))
}

// stepRun collects the warnings and written files of one step execution.
type stepRun struct {
	env      *Env
	step     string
	log      *slog.Logger
	warnings []error
	written  int
	busted   bool
}

func (e *Env) begin(step string) *stepRun {
	return &stepRun{env: e, step: step, log: e.log(step)}
}

// warn records a recovered processing error.
func (r *stepRun) warn(msg, path string, err error) {
	r.warnings = append(r.warnings, ferrors.ProcessingError(msg).
		WithCause(err).
		WithContext("step", r.step).
		WithContext("path", path).Build())
}

// write stores data at dir/name and fingerprints it when busting is enabled.
func (r *stepRun) write(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := writeFile(path, data); err != nil {
		return err
	}
	r.written++
	r.log.Debug("Wrote output", logfields.Path(path))
	if r.env.Buster != nil {
		r.env.Buster.Add(path, data)
		r.busted = true
	}
	return nil
}

func (r *stepRun) failed(err error) taskgraph.Result {
	return taskgraph.Failed(ferrors.FileSystemError("write output").
		WithCause(err).
		WithContext("step", r.step).Build())
}

// done writes the buster manifest if needed and builds the result.
func (r *stepRun) done() taskgraph.Result {
	if r.busted {
		if err := r.env.Buster.Write(r.env.Config.Buster.Path); err != nil {
			r.warn("write buster manifest", r.env.Config.Buster.Path, err)
		}
	}
	r.log.Debug("Step outputs", logfields.Count(r.written))
	return taskgraph.Completed(r.warnings...)
}

// srcDir returns the configured source path when it exists on disk.
func (e *Env) srcDir(key string) (string, bool) {
	p, ok := e.Config.Src(key)
	if !ok {
		return "", false
	}
	if !isDir(p) {
		return p, false
	}
	return p, true
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// reloadAfter notifies the reloader once work finished, whatever its result.
func (e *Env) reloadAfter(work taskgraph.WorkFunc) taskgraph.WorkFunc {
	return func(ctx context.Context) taskgraph.Result {
		res := work(ctx)
		e.reload()
		return res
	}
}
