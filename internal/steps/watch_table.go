package steps

import (
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// WatchEntry maps a set of globs to the invocation they trigger.
type WatchEntry struct {
	Target string
	Globs  []string
}

// WatchTable returns the development watch rules for cfg. Entries whose
// source path is not configured are omitted.
func WatchTable(cfg *config.Resolved) []WatchEntry {
	var out []WatchEntry
	add := func(target, key string, globs ...string) {
		root, ok := cfg.Src(key)
		if !ok {
			return
		}
		e := WatchEntry{Target: target}
		for _, g := range globs {
			e.Globs = append(e.Globs, filepath.Join(root, g))
		}
		out = append(out, e)
	}

	if !cfg.External {
		add(HTML, config.PathHTML, "**/*.twig", "**/*.html", "**/*.md")
	}
	add(App, config.PathApp, "**/*.js")
	add(CSSStylus, config.PathCSS, "**/*"+StyleExt)
	add(CSSVendor, config.PathCSS, "vendor/*.css")
	add(JS, config.PathJS, "**/*.js")
	if dst, ok := cfg.Dst(config.PathJS); ok && len(out) > 0 && out[len(out)-1].Target == JS {
		// written bundles must not retrigger the step that wrote them
		out[len(out)-1].Globs = append(out[len(out)-1].Globs, "!"+filepath.Join(dst, "**/*.js"))
	}
	add(JSVendor, config.PathJS, "vendor/**/*.js")
	add(Fonts, config.PathFonts, "**/*")
	add(Images, config.PathImages, "**/*")
	add(Video, config.PathVideo, "**/*")
	add(CSSSvgUpd, config.PathSVG, "**/*.svg")
	add(CSSSprUpd, config.PathSprites, "**/*")
	return out
}
