// Package express runs the project's app server during development and
// restarts it when its entry or routing files change.
package express

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// RestartTarget is the watch target that restarts the app.
const RestartTarget = "express:restart"

// Defaults used when the configuration leaves the command or watch list empty.
var (
	DefaultCommand = []string{"node", "app.js"}
	DefaultWatch   = []string{"routing.yml", "app.js"}
)

const stopGrace = 3 * time.Second

// Supervisor owns one app process at a time.
type Supervisor struct {
	argv     []string
	globs    []string
	dir      string
	env      []string
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	started  bool
	closed   bool
	cmd      *exec.Cmd
	exited   chan struct{}
	restarts int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithDir sets the working directory of the process and the base for relative watch paths.
func WithDir(dir string) Option { return func(s *Supervisor) { s.dir = dir } }

// WithEnv appends environment entries for the process.
func WithEnv(env ...string) Option {
	return func(s *Supervisor) { s.env = append(s.env, env...) }
}

// WithOutput redirects the process output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) { s.stdout, s.stderr = stdout, stderr }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Supervisor) { s.logger = l } }

// WithDebounce sets the quiet period before a change restarts the process.
func WithDebounce(d time.Duration) Option { return func(s *Supervisor) { s.debounce = d } }

// New creates a supervisor for argv restarting on changes to files matching globs.
func New(argv, globs []string, opts ...Option) *Supervisor {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if len(globs) == 0 {
		globs = DefaultWatch
	}
	s := &Supervisor{
		argv:     append([]string(nil), argv...),
		globs:    append([]string(nil), globs...),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   slog.Default(),
		debounce: watch.DefaultDebounce,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the process and returns once it is running. The process is
// restarted on watched changes and stopped when ctx is done.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ferrors.InternalError("express supervisor already started").Build()
	}
	s.started = true
	s.mu.Unlock()

	if err := s.spawn(); err != nil {
		return err
	}

	d := watch.New(s, watch.WithDebounce(s.debounce), watch.WithLogger(s.logger))
	if err := d.Watch(RestartTarget, s.watchGlobs()...); err != nil {
		s.stop()
		return err
	}
	go func() {
		if err := d.Run(ctx); err != nil {
			s.logger.Warn("Express watcher stopped", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.stop()
	}()
	return nil
}

func (s *Supervisor) watchGlobs() []string {
	out := make([]string, 0, len(s.globs))
	for _, g := range s.globs {
		if !filepath.IsAbs(g) && s.dir != "" {
			g = filepath.Join(s.dir, g)
		}
		out = append(out, g)
	}
	return out
}

// RunAsync restarts the process; it lets the watch dispatcher drive restarts.
func (s *Supervisor) RunAsync(ctx context.Context, entries []string, onDone func(*taskgraph.Report)) {
	go func() {
		rep := &taskgraph.Report{ID: uuid.NewString(), Targets: entries, Started: time.Now(), Results: map[string]taskgraph.Result{}}
		if ctx.Err() == nil {
			rep.Err = s.Restart()
		}
		rep.Finished = time.Now()
		if onDone != nil {
			onDone(rep)
		}
	}()
}

// Restart stops the current process and starts a new one.
func (s *Supervisor) Restart() error {
	s.stop()
	if err := s.spawn(); err != nil {
		return err
	}
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
	s.logger.Info("Express app restarted", slog.Int("pid", s.PID()))
	return nil
}

// PID returns the process id of the running app, or 0.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Restarts returns how many times the app was restarted.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Exited returns a channel closed when the current process exits, or nil.
func (s *Supervisor) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

func (s *Supervisor) spawn() error {
	cmd := exec.Command(s.argv[0], s.argv[1:]...) //nolint:gosec // command comes from the project configuration
	cmd.Dir = s.dir
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ferrors.InternalError("express supervisor stopped").Build()
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return ferrors.WrapError(err, ferrors.CategoryProcessing, "failed to start express app").
			WithContext("command", s.argv[0]).Build()
	}
	exited := make(chan struct{})
	s.cmd, s.exited = cmd, exited
	s.mu.Unlock()
	s.logger.Info("Express app started", slog.Int("pid", cmd.Process.Pid), slog.Any("command", s.argv))

	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			s.logger.Info("Express app exited", slog.Int("pid", cmd.Process.Pid))
		case errors.As(err, &exitErr):
			s.logger.Warn("Express app exited", slog.Int("pid", cmd.Process.Pid), slog.Int("code", exitErr.ExitCode()))
		default:
			s.logger.Warn("Express app wait failed", logfields.Error(err))
		}
		close(exited)
	}()
	return nil
}

// stop interrupts the current process and kills it after a grace period.
func (s *Supervisor) stop() {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.mu.Unlock()
	if cmd == nil {
		return
	}
	select {
	case <-exited:
		return
	default:
	}
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-exited:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-exited
	}
}
