package steps

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/styles"
)

// StyleExt is the extension of stylesheet entry files.
const StyleExt = ".styl"

// Stylesheets compiles every top-level *.styl entry of source.css into
// destination.css, with the current sprite and SVG metadata as globals.
// A compile error skips that entry only.
func (e *Env) Stylesheets(_ context.Context) taskgraph.Result {
	run := e.begin(CSSStylus)
	root, ok := e.srcDir(config.PathCSS)
	if !ok {
		return taskgraph.Empty("css source not found")
	}
	dest, ok := e.Config.Dst(config.PathCSS)
	if !ok {
		return taskgraph.Empty("css destination not configured")
	}
	entries := glob(root, "*"+StyleExt)
	if len(entries) == 0 {
		return taskgraph.Empty("no stylesheet entries")
	}

	globals := styles.Globals{
		Timestamp: e.Now().UnixMilli(),
		Sprites:   e.Store.SpriteMetadata(),
		SVG:       e.Store.SvgMetadata(),
	}
	for _, path := range entries {
		src, err := os.ReadFile(path)
		if err != nil {
			run.warn("read stylesheet", path, err)
			continue
		}
		css, err := e.Tools.Styles.Compile(filepath.Base(path), src, globals)
		if err != nil {
			run.warn("compile stylesheet", path, err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), StyleExt) + ".css"
		if e.Config.Production {
			minified, err := e.Tools.Minifier.MinifyCSS(name, css)
			if err != nil {
				run.warn("minify stylesheet", path, err)
				continue
			}
			css = minified
		}
		if err := run.write(dest, name, css); err != nil {
			return run.failed(err)
		}
	}
	return run.done()
}

var (
	quotedURL   = regexp.MustCompile(`(?m)url\('`)
	unquotedURL = regexp.MustCompile(`(?m)url\(([^'])`)
)

// rewriteVendorURLs points url() references of bower stylesheets at /images/vendor/.
func rewriteVendorURLs(css []byte) []byte {
	out := quotedURL.ReplaceAll(css, []byte("url('/images/vendor/"))
	return unquotedURL.ReplaceAll(out, []byte("url(/images/vendor/$1"))
}

// VendorCSS concatenates bower stylesheets and source.css/vendor/*.css into vendor.css.
func (e *Env) VendorCSS(_ context.Context) taskgraph.Result {
	run := e.begin(CSSVendor)
	dest, ok := e.Config.Dst(config.PathCSS)
	if !ok {
		return taskgraph.Empty("css destination not configured")
	}
	var parts [][]byte
	for _, path := range bowerFiles(e.BowerDir, ".css") {
		data, err := os.ReadFile(path)
		if err != nil {
			run.warn("read vendor stylesheet", path, err)
			continue
		}
		parts = append(parts, rewriteVendorURLs(data))
	}
	if root, ok := e.srcDir(config.PathCSS); ok {
		for _, path := range glob(filepath.Join(root, "vendor"), "*.css") {
			data, err := os.ReadFile(path)
			if err != nil {
				run.warn("read vendor stylesheet", path, err)
				continue
			}
			parts = append(parts, data)
		}
	}
	if len(parts) == 0 {
		return taskgraph.Empty("no vendor stylesheets")
	}
	out := concat(parts)
	if e.Config.Production {
		minified, err := e.Tools.Minifier.MinifyCSS("vendor.css", out)
		if err != nil {
			run.warn("minify vendor.css", "vendor.css", err)
			return run.done()
		}
		out = minified
	}
	if err := run.write(dest, "vendor.css", out); err != nil {
		return run.failed(err)
	}
	return run.done()
}
