package steps

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metastore"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/svg"
)

// SVG optimizes every *.svg under source.svg and replaces the SVG metadata
// with the icons that declare a viewBox. Icons without one are dropped.
func (e *Env) SVG(_ context.Context) taskgraph.Result {
	run := e.begin(CSSSvg)
	root, ok := e.srcDir(config.PathSVG)
	if !ok {
		e.Store.SetSvgMetadata(nil)
		return taskgraph.Empty("svg source not found")
	}
	files, err := walkFiles(root, func(rel string) bool { return hasExt(rel, ".svg") })
	if err != nil {
		run.warn("list svg sources", root, err)
	}

	icons := make(map[string]metastore.SvgIcon, len(files))
	for _, rel := range files {
		path := filepath.Join(root, rel)
		icon, ok, err := e.icon(path)
		if err != nil {
			run.warn("optimize svg", path, err)
			continue
		}
		if !ok {
			run.log.Debug("Icon has no viewBox, dropped", logfields.Path(path))
			continue
		}
		icons[strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))] = icon
	}
	e.Store.SetSvgMetadata(icons)
	run.log.Debug("SVG metadata replaced", logfields.Count(len(icons)))
	return run.done()
}

func (e *Env) icon(path string) (metastore.SvgIcon, bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return metastore.SvgIcon{}, false, err
	}
	out, err := e.Tools.SVG.Optimize(src)
	if err != nil {
		return metastore.SvgIcon{}, false, err
	}
	out, err = svg.ForceRootAttr(out, "preserveAspectRatio", "none")
	if err != nil {
		return metastore.SvgIcon{}, false, err
	}
	markup := string(svg.UnescapeGT(out))
	w, h, ok := svg.ViewBoxSize(markup)
	if !ok {
		return metastore.SvgIcon{}, false, nil
	}
	return metastore.SvgIcon{Width: w, Height: h, Icon: svg.EscapeIcon(markup)}, true, nil
}
