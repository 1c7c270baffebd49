package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"assetbuilder.yaml"`
	Override  string           `help:"Optional override file deep-merged on top of the configuration" default:"assetbuilder.local.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	Serialize bool             `help:"Never run two invocations of the same step at once"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Default  DefaultCmd  `cmd:"" default:"1" help:"Build everything, then serve and watch (default)"`
	Build    BuildCmd    `cmd:"" help:"Build all assets once"`
	Watch    WatchCmd    `cmd:"" help:"Serve the output and rebuild on changes without an initial build"`
	External ExternalCmd `cmd:"" help:"Build into the external destination, then serve and watch"`
	Express  ExpressCmd  `cmd:"" help:"Build, start the express app behind the dev server, then watch"`
	Run      RunCmd      `cmd:"" help:"Run named steps or targets"`
	Graph    GraphCmd    `cmd:"" help:"Print the step graph"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}
