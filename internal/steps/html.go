package steps

import (
	"context"
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/markup"
)

// HTML renders the top-level pages of source.html into destination.html.
// External builds have no markup.
func (e *Env) HTML(_ context.Context) taskgraph.Result {
	run := e.begin(HTML)
	if e.Config.External {
		return taskgraph.Empty("markup is not built in external mode")
	}
	root, ok := e.srcDir(config.PathHTML)
	if !ok {
		return taskgraph.Empty("html source not found")
	}
	dest, ok := e.Config.Dst(config.PathHTML)
	if !ok {
		return taskgraph.Empty("html destination not configured")
	}
	pages, err := markup.LoadPages(root)
	if err != nil {
		run.warn("list pages", root, err)
	}
	renderer := e.Tools.Markup(root)
	for _, page := range pages {
		src, err := os.ReadFile(page)
		if err != nil {
			run.warn("read page", page, err)
			continue
		}
		out, err := renderer.Render(page, src)
		if err != nil {
			run.warn("render page", page, err)
			continue
		}
		if err := run.write(dest, markup.OutputName(page), out); err != nil {
			return run.failed(err)
		}
	}
	return run.done()
}
