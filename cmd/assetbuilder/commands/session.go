package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/devserver"
	"git.home.luguber.info/inful/assetbuilder/internal/express"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metastore"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/steps"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// session is one resolved configuration wired to a step graph.
type session struct {
	cfg      *config.Resolved
	graph    *taskgraph.Graph
	env      *steps.Env
	logger   *slog.Logger
	recorder metrics.Recorder
	metrics  *metrics.PrometheusRecorder
	cwd      string
}

type sessionOptions struct {
	mode       *config.Mode
	express    bool
	production *bool
}

// loadConfig reads the configuration and optional override named by root.
func loadConfig(root *CLI) (*config.Config, *config.Config, error) {
	config.LoadEnvFiles()
	base, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, err
	}
	override, err := config.LoadOptional(root.Override)
	if err != nil {
		return nil, nil, err
	}
	return base, override, nil
}

func newSession(root *CLI, opts sessionOptions) (*session, error) {
	base, override, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if opts.express && !base.Express.IsSet() && (override == nil || !override.Express.IsSet()) {
		base.Express = config.ExpressSetting{Enabled: true}
	}

	production := config.IsProduction(nil)
	if opts.production != nil {
		production = *opts.production
	}
	mode := config.ModeFor(base)
	if override != nil && override.External {
		mode = config.ModeExternal
	}
	if opts.mode != nil {
		mode = *opts.mode
	}
	cfg, err := config.NewResolver(base, override, production).Resolve(mode)
	if err != nil {
		return nil, err
	}

	logger := cfg.Log.NewLogger(os.Stderr, root.Verbose)
	slog.SetDefault(logger)

	s := &session{cfg: cfg, logger: logger, recorder: metrics.NoopRecorder{}}
	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewPrometheusRecorder(nil)
		s.recorder = s.metrics
	}
	if s.cwd, err = os.Getwd(); err != nil {
		s.cwd = "."
	}

	gopts := []taskgraph.Option{
		taskgraph.WithLogger(logger),
		taskgraph.WithObserver(taskgraph.RecorderObserver{Recorder: s.recorder}),
	}
	if root.Serialize {
		gopts = append(gopts, taskgraph.WithSerializedSteps())
	}
	s.graph = taskgraph.New(gopts...)
	s.env = steps.NewEnv(cfg, metastore.New(), logger)
	if err := steps.Register(s.graph, s.env); err != nil {
		return nil, err
	}
	if err := steps.RegisterEntryPoints(s.graph, s.watchWork, s.expressWork); err != nil {
		return nil, err
	}
	if err := s.graph.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Session ready",
		slog.String("mode", string(cfg.Mode)),
		slog.Bool("production", cfg.Production),
		slog.Bool("express", cfg.Express.Enabled))
	return s, nil
}

// run executes targets until they finish or ctx is cancelled.
func (s *session) run(ctx context.Context, targets ...string) error {
	rep, err := s.graph.Run(ctx, targets...)
	if err != nil {
		return err
	}
	if n := rep.Warnings(); n > 0 {
		s.logger.Warn("Finished with recovered errors", logfields.Target(rep.Target()), logfields.Count(n))
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// watchWork serves the output and dispatches file changes until ctx is done.
func (s *session) watchWork(ctx context.Context) taskgraph.Result {
	backend, err := devserver.PlanBackend(s.cfg, s.cwd)
	if err != nil {
		return taskgraph.Failed(err)
	}
	opts := []devserver.Option{devserver.WithLogger(s.logger), devserver.WithRecorder(s.recorder)}
	if s.metrics != nil {
		opts = append(opts, devserver.WithMetrics(s.cfg.Metrics.Path, s.metrics.Handler()))
	}
	if s.cfg.Server.NoLiveReload {
		opts = append(opts, devserver.WithoutLiveReload())
	}
	srv := devserver.New(backend, opts...)
	if err := srv.Start(ctx); err != nil {
		return taskgraph.Failed(err)
	}
	s.env.SetReloader(srv)

	d := watch.New(s.graph,
		watch.WithLogger(s.logger),
		watch.WithRecorder(s.recorder),
		watch.WithOnDone(func(rep *taskgraph.Report) {
			if rep.Err != nil {
				s.logger.Warn("Rebuild failed", logfields.Target(rep.Target()), logfields.Error(rep.Err))
			}
		}))
	for _, e := range steps.WatchTable(s.cfg) {
		if err := d.Watch(e.Target, e.Globs...); err != nil {
			return taskgraph.Failed(err)
		}
	}
	s.logger.Info("Watching for changes", logfields.Count(len(d.Roots())))
	if err := d.Run(ctx); err != nil {
		return taskgraph.Failed(err)
	}
	return taskgraph.Completed()
}

// expressWork starts the app server; it completes once the first process runs.
func (s *session) expressWork(ctx context.Context) taskgraph.Result {
	sup := express.New(s.cfg.ExpressCommand, s.cfg.ExpressWatch,
		express.WithDir(s.cwd),
		express.WithLogger(s.logger))
	if err := sup.Start(ctx); err != nil {
		return taskgraph.Failed(err)
	}
	return taskgraph.Completed()
}
