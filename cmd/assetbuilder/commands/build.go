package commands

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/steps"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Production bool `short:"p" help:"Force production mode regardless of NODE_ENV"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	fmt.Println("Starting asset build")
	opts := sessionOptions{}
	if b.Production {
		opts.production = &b.Production
	}
	s, err := newSession(root, opts)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := s.run(ctx, steps.Build); err != nil {
		return err
	}
	fmt.Println("Build completed")
	return nil
}

// DefaultCmd implements the 'default' command: build, then serve and watch.
type DefaultCmd struct{}

func (d *DefaultCmd) Run(_ *Global, root *CLI) error {
	return runTarget(root, sessionOptions{}, steps.Default)
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	return runTarget(root, sessionOptions{}, steps.Watch)
}

// ExternalCmd implements the 'external' command.
type ExternalCmd struct{}

func (e *ExternalCmd) Run(_ *Global, root *CLI) error {
	mode := config.ModeExternal
	return runTarget(root, sessionOptions{mode: &mode}, steps.External)
}

// ExpressCmd implements the 'express' command. Express proxying is switched on
// unless the configuration sets it explicitly.
type ExpressCmd struct{}

func (e *ExpressCmd) Run(_ *Global, root *CLI) error {
	return runTarget(root, sessionOptions{express: true}, steps.Express)
}

// RunCmd implements the 'run' command for individual steps.
type RunCmd struct {
	Steps    []string `arg:"" name:"step" help:"Steps or targets to run together (see 'graph')"`
	External bool     `short:"e" help:"Resolve destinations against the external path"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	opts := sessionOptions{}
	if r.External || slices.Contains(r.Steps, steps.ExternalBuild) || slices.Contains(r.Steps, steps.External) {
		mode := config.ModeExternal
		opts.mode = &mode
	}
	if slices.Contains(r.Steps, steps.Express) {
		opts.express = true
	}
	return runTarget(root, opts, r.Steps...)
}

func runTarget(root *CLI, opts sessionOptions, targets ...string) error {
	s, err := newSession(root, opts)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return s.run(ctx, targets...)
}
