package steps

import (
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// ReloadAfter lists the steps that notify the reloader when they finish.
var ReloadAfter = []string{App, CSSStylus, JSMain, HTML}

// Register defines every build step and build composite on g.
func Register(g *taskgraph.Graph, e *Env) error {
	leaves := []struct {
		name string
		work taskgraph.WorkFunc
	}{
		{App, e.App},
		{CSSSvg, e.SVG},
		{CSSSprites, e.Sprites},
		{CSSVendor, e.VendorCSS},
		{CSSStylus, e.Stylesheets},
		{JSMain, e.Scripts},
		{JSVendor, e.VendorScripts},
		{Fonts, e.Fonts},
		{Images, e.Images},
		{Video, e.Video},
		{HTML, e.HTML},
	}
	reload := map[string]bool{}
	for _, name := range ReloadAfter {
		reload[name] = true
	}
	for _, l := range leaves {
		work := l.work
		if reload[l.name] {
			work = e.reloadAfter(work)
		}
		if err := g.Define(l.name, taskgraph.Deps{}, work); err != nil {
			return err
		}
	}

	composites := []struct {
		name string
		deps taskgraph.Deps
	}{
		// the stylesheet step starts only after all three metadata/vendor producers
		{CSSPrepare, taskgraph.Deps{Concurrent: []string{CSSSprites, CSSSvg, CSSVendor}}},
		{CSS, taskgraph.Deps{Sequential: []string{CSSPrepare, CSSStylus}}},
		{CSSSvgUpd, taskgraph.Deps{Sequential: []string{CSSSvg, CSSStylus}}},
		{CSSSprUpd, taskgraph.Deps{Sequential: []string{CSSSprites, CSSStylus}}},
		{JS, taskgraph.Deps{Concurrent: []string{JSMain, JSVendor}}},
		{Build, taskgraph.Deps{Concurrent: []string{App, CSS, JS, Fonts, Images, Video, HTML}}},
		{ExternalBuild, taskgraph.Deps{Concurrent: []string{App, CSS, JS, Fonts, Images, Video}}},
	}
	for _, c := range composites {
		if err := g.Define(c.name, c.deps, nil); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEntryPoints defines watch and express:start with the given work and
// the default, external and express composites built on them.
func RegisterEntryPoints(g *taskgraph.Graph, watch, expressStart taskgraph.WorkFunc) error {
	defs := []struct {
		name string
		deps taskgraph.Deps
		work taskgraph.WorkFunc
	}{
		{Watch, taskgraph.Deps{}, watch},
		{ExpressStart, taskgraph.Deps{}, expressStart},
		{Default, taskgraph.Deps{Sequential: []string{Build, Watch}}, nil},
		{External, taskgraph.Deps{Sequential: []string{ExternalBuild, Watch}}, nil},
		{Express, taskgraph.Deps{Sequential: []string{Build, ExpressStart, Watch}}, nil},
	}
	for _, d := range defs {
		if err := g.Define(d.name, d.deps, d.work); err != nil {
			return err
		}
	}
	return nil
}
