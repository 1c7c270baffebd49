package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/metastore"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/buster"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/script"
)

type fixture struct {
	src string
	dst string
	env *Env
}

type fixtureOpt func(*config.Config)

func newFixture(t *testing.T, mode config.Mode, production bool, opts ...fixtureOpt) *fixture {
	t.Helper()
	src := t.TempDir()
	dst := t.TempDir()
	cfg := &config.Config{
		Source: config.PathSet{
			config.KeyPath:     src + "/",
			config.PathApp:     "app",
			config.PathCSS:     "css",
			config.PathJS:      "js",
			config.PathSVG:     "svg",
			config.PathSprites: "sprites",
			config.PathFonts:   "fonts",
			config.PathImages:  "images",
			config.PathVideo:   "video",
			config.PathHTML:    "html",
		},
		Destination: config.PathSet{
			config.KeyPath:         dst,
			config.KeyExternalPath: dst,
			config.PathApp:         "/app",
			config.PathCSS:         "/css",
			config.PathJS:          "/js",
			config.PathSprites:     "/images/sprites",
			config.PathFonts:       "/fonts",
			config.PathImages:      "/images",
			config.PathVideo:       "/video",
			config.PathHTML:        "/",
		},
	}
	for _, o := range opts {
		o(cfg)
	}
	res, err := config.Resolve(cfg, nil, mode)
	require.NoError(t, err)
	res.Production = production
	env := NewEnv(res, metastore.New(), nil)
	env.BowerDir = filepath.Join(src, "bower_components")
	return &fixture{src: src, dst: dst, env: env}
}

func (f *fixture) file(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.src, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func (f *fixture) png(t *testing.T, rel string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	f.file(t, rel, buf.String())
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dst, rel))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(f.dst, rel))
	return err == nil
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSprites_FoldersWithAndWithoutImages(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.png(t, "sprites/icons/a.png", 4, 4)
	f.png(t, "sprites/icons/b.png", 4, 2)
	f.png(t, "sprites/icons/c.png", 2, 2)
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "sprites", "badges"), 0o750))

	res := f.env.Sprites(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Empty(t, res.Warnings)

	meta := f.env.Store.SpriteMetadata()
	require.Len(t, meta, 1)
	icons, ok := meta["icons"]
	require.True(t, ok)
	assert.Len(t, icons, 3)
	assert.Equal(t, []string{"icons.png"}, dirEntries(t, filepath.Join(f.dst, "images", "sprites")))
}

func TestSprites_Retina(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false, func(c *config.Config) { c.Retina = true })
	f.png(t, "sprites/icons/a.png", 2, 2)
	f.png(t, "sprites/icons/a@2x.png", 4, 4)

	res := f.env.Sprites(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.ElementsMatch(t, []string{"icons.png", "icons-2x.png"}, dirEntries(t, filepath.Join(f.dst, "images", "sprites")))
	assert.Contains(t, f.env.Store.SpriteMetadata()["icons"], "retina_groups")
}

func TestSprites_PackErrorIsAWarning(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "sprites/broken/a.png", "not a png")
	f.png(t, "sprites/ok/a.png", 1, 1)

	res := f.env.Sprites(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Len(t, res.Warnings, 1)
	assert.Contains(t, f.env.Store.SpriteMetadata(), "ok")
}

func TestMissingSourcesAreEmptyAndWriteNothing(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.env.Store.SetSvgMetadata(map[string]metastore.SvgIcon{"stale": {}})
	f.env.Store.SetSpriteMetadata(map[string]metastore.SpriteSheet{"stale": {}})

	for name, work := range map[string]taskgraph.WorkFunc{
		CSSSvg:     f.env.SVG,
		CSSSprites: f.env.Sprites,
		CSSStylus:  f.env.Stylesheets,
		CSSVendor:  f.env.VendorCSS,
		App:        f.env.App,
		JSMain:     f.env.Scripts,
		JSVendor:   f.env.VendorScripts,
		Fonts:      f.env.Fonts,
		Images:     f.env.Images,
		Video:      f.env.Video,
		HTML:       f.env.HTML,
	} {
		res := work(t.Context())
		assert.Equal(t, taskgraph.StatusCompletedEmpty, res.Status, name)
		assert.True(t, res.OK(), name)
	}
	assert.Empty(t, f.env.Store.SvgMetadata())
	assert.Empty(t, f.env.Store.SpriteMetadata())
	assert.Empty(t, dirEntries(t, f.dst))
}

func TestSVG_KeepsIconsWithViewBox(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "svg/arrow.svg", `<?xml version="1.0"?><svg viewBox="0 0 24 24"><path d="M0 0"/></svg>`)
	f.file(t, "svg/nested/dot.svg", `<svg viewBox="0 0 8 6.5"><circle r="1"/></svg>`)
	f.file(t, "svg/plain.svg", `<svg width="10" height="10"></svg>`)
	f.file(t, "svg/readme.txt", `ignored`)

	res := f.env.SVG(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)

	icons := f.env.Store.SvgMetadata()
	require.Len(t, icons, 2)
	assert.Equal(t, "24", icons["arrow"].Width)
	assert.Equal(t, "24", icons["arrow"].Height)
	assert.Equal(t, "8", icons["dot"].Width)
	assert.Equal(t, "6.5", icons["dot"].Height)
	assert.NotContains(t, icons, "plain")

	icon := icons["arrow"].Icon
	assert.Contains(t, icon, "%3Csvg")
	assert.Contains(t, icon, "preserveAspectRatio=%22none%22")
	assert.NotContains(t, icon, "<")
	assert.NotContains(t, icon, `"`)
}

func TestSVG_EmptyFolderStillCompletes(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "svg"), 0o750))
	f.env.Store.SetSvgMetadata(map[string]metastore.SvgIcon{"old": {}})

	res := f.env.SVG(t.Context())
	assert.True(t, res.OK())
	assert.Empty(t, f.env.Store.SvgMetadata())
}

func TestCSS_StylesheetSeesFreshMetadata(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "svg/arrow.svg", `<svg viewBox="0 0 24 16"></svg>`)
	f.png(t, "sprites/icons/a.png", 3, 7)
	f.file(t, "css/main.styl", `.arrow { width: ${svg.arrow.width}px; } .a { height: ${sprites.icons.a.height}px; }`)
	f.file(t, "css/vendor/reset.css", `html { margin: 0; }`)

	g := taskgraph.New()
	require.NoError(t, Register(g, f.env))
	_, err := g.Run(t.Context(), CSS)
	require.NoError(t, err)

	assert.Equal(t, `.arrow { width: 24px; } .a { height: 7px; }`, f.read(t, "css/main.css"))
	assert.Equal(t, `html { margin: 0; }`, f.read(t, "css/vendor.css"))
}

func TestStylesheets_CompileErrorSkipsOnlyThatEntry(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "css/bad.styl", `${svg.missing.width}`)
	f.file(t, "css/good.styl", `body { color: red; }`)
	f.file(t, "css/partial/ignored.styl", `${nope}`)

	res := f.env.Stylesheets(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Len(t, res.Warnings, 1)
	assert.False(t, f.exists("css/bad.css"))
	assert.Equal(t, "body { color: red; }", f.read(t, "css/good.css"))
}

func TestStylesheets_ProductionMinifies(t *testing.T) {
	f := newFixture(t, config.ModeInternal, true)
	f.file(t, "css/main.styl", "body {\n  color: red;\n}\n")
	res := f.env.Stylesheets(t.Context())
	require.True(t, res.OK())
	assert.Contains(t, f.read(t, "css/main.css"), "body{color:red}")
}

func TestVendorCSS_BowerURLsAreRewritten(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "bower_components/widget/bower.json", `{"main": ["dist/widget.css", "dist/widget.js"]}`)
	f.file(t, "bower_components/widget/dist/widget.css", `.w { background: url('bg.png'); } .x { background: url(x.png); }`)
	f.file(t, "css/vendor/local.css", `.local {}`)

	res := f.env.VendorCSS(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Equal(t,
		".w { background: url('/images/vendor/bg.png'); } .x { background: url(/images/vendor/x.png); }\n.local {}",
		f.read(t, "css/vendor.css"))
}

func TestScripts_DeterministicConcatenation(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	for _, name := range []string{"c.js", "a.js", "b.js"} {
		f.file(t, "js/pages/"+name, "var "+name[:1]+" = 1;\n")
	}
	f.file(t, "js/z.js", "var z = 1;\n")
	f.file(t, "js/m.js", "var m = 1;\n")
	f.file(t, "js/vendor/lib.js", "var lib = 1;\n")

	res := f.env.Scripts(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	first := f.read(t, "js/pages.js")
	common := f.read(t, "js/common.js")
	assert.False(t, f.exists("js/vendor.js"), "vendor folder is not a page bundle")

	ia, ib, ic := bytes.Index([]byte(first), []byte("var a")), bytes.Index([]byte(first), []byte("var b")), bytes.Index([]byte(first), []byte("var c"))
	require.True(t, ia >= 0 && ib >= 0 && ic >= 0)
	assert.Less(t, ia, ib)
	assert.Less(t, ib, ic)
	assert.Less(t, bytes.Index([]byte(common), []byte("var m")), bytes.Index([]byte(common), []byte("var z")))

	for range 3 {
		require.True(t, f.env.Scripts(t.Context()).OK())
		assert.Equal(t, first, f.read(t, "js/pages.js"))
		assert.Equal(t, common, f.read(t, "js/common.js"))
	}
}

func TestScripts_TranspileErrorDropsOnlyThatBundle(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "js/broken/a.js", "let = ;")
	f.file(t, "js/fine/a.js", "var a = 1;")

	res := f.env.Scripts(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Len(t, res.Warnings, 1)
	assert.False(t, f.exists("js/broken.js"))
	assert.True(t, f.exists("js/fine.js"))
}

func TestScripts_SourceMapsOnlyInDevelopment(t *testing.T) {
	dev := newFixture(t, config.ModeInternal, false)
	dev.file(t, "js/pages/a.js", "var a = 1;\n")
	dev.file(t, "js/pages/b.js", "var b = 2;\n")
	require.True(t, dev.env.Scripts(t.Context()).OK())

	assert.Contains(t, dev.read(t, "js/pages.js"), "//# sourceMappingURL=pages.js.map")
	var idx struct {
		Sections []struct {
			Map struct {
				Sources []string `json:"sources"`
			} `json:"map"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(dev.read(t, "js/pages.js.map")), &idx))
	require.Len(t, idx.Sections, 2)
	assert.Equal(t, []string{"pages/a.js"}, idx.Sections[0].Map.Sources)
	assert.Equal(t, []string{"pages/b.js"}, idx.Sections[1].Map.Sources)

	prod := newFixture(t, config.ModeInternal, true)
	prod.file(t, "js/pages/a.js", "var a = 1;\n")
	require.True(t, prod.env.Scripts(t.Context()).OK())
	assert.NotContains(t, prod.read(t, "js/pages.js"), "sourceMappingURL")
	assert.False(t, prod.exists("js/pages.js.map"))
}

func TestScripts_WriteFailureFailsStep(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "js/pages/a.js", "var a = 1;\n")
	// a file where the js destination directory should be
	require.NoError(t, os.WriteFile(filepath.Join(f.dst, "js"), []byte("x"), 0o600))

	res := f.env.Scripts(t.Context())
	require.Equal(t, taskgraph.StatusFailed, res.Status)
	assert.Equal(t, ferrors.CategoryFileSystem, ferrors.GetCategory(res.Err))
}

func TestVendorScripts(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "bower_components/lib/.bower.json", `{"main": "lib.js"}`)
	f.file(t, "bower_components/lib/lib.js", "window.lib = 1;")
	f.file(t, "js/vendor/deep/b.js", "window.b = 1;")
	f.file(t, "js/vendor/a.js", "window.a = 1;")

	res := f.env.VendorScripts(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Equal(t, "window.lib = 1;\nwindow.a = 1;\nwindow.b = 1;", f.read(t, "js/vendor.js"))
}

type failingBundler struct{}

func (failingBundler) Bundle(string, script.Options) ([]byte, error) {
	return nil, errors.New("cannot resolve ./missing")
}

func TestApp_BundleErrorWritesNothing(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "app/index.js", "import './missing';")
	f.env.Tools.Bundler = failingBundler{}

	res := f.env.App(t.Context())
	assert.Equal(t, taskgraph.StatusCompleted, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.False(t, f.exists("app/app.js"))
}

func TestApp_Bundles(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "app/dep.js", "export default 7;")
	f.file(t, "app/index.js", "import v from './dep.js';\nconsole.log(v);")

	res := f.env.App(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Contains(t, f.read(t, "app/app.js"), "console.log")
}

func TestCopySteps(t *testing.T) {
	f := newFixture(t, config.ModeInternal, true)
	f.file(t, "fonts/a.woff", "font")
	f.file(t, "video/clips/intro.mp4", "video")
	f.png(t, "images/logo.png", 3, 3)
	f.file(t, "images/photo.jpg", "jpeg")

	for _, work := range []taskgraph.WorkFunc{f.env.Fonts, f.env.Video, f.env.Images} {
		require.Equal(t, taskgraph.StatusCompleted, work(t.Context()).Status)
	}
	assert.Equal(t, "font", f.read(t, "fonts/a.woff"))
	assert.Equal(t, "video", f.read(t, "video/clips/intro.mp4"))
	assert.Equal(t, "jpeg", f.read(t, "images/photo.jpg"))
	_, err := png.Decode(bytes.NewReader([]byte(f.read(t, "images/logo.png"))))
	require.NoError(t, err)
}

func TestHTML(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	f.file(t, "html/index.html", `<h1>{{"home"}}</h1>`)
	f.file(t, "html/about.md", "# About\n")
	f.file(t, "html/partials/nav.html", `<nav></nav>`)

	res := f.env.HTML(t.Context())
	require.Equal(t, taskgraph.StatusCompleted, res.Status)
	assert.Equal(t, "<h1>home</h1>", f.read(t, "index.html"))
	assert.Contains(t, f.read(t, "about.html"), "<h1>About</h1>")
	assert.False(t, f.exists("nav.html"))
}

func TestHTML_SkippedInExternalMode(t *testing.T) {
	f := newFixture(t, config.ModeExternal, false)
	f.file(t, "html/index.html", `<p></p>`)
	res := f.env.HTML(t.Context())
	assert.Equal(t, taskgraph.StatusCompletedEmpty, res.Status)
	assert.False(t, f.exists("index.html"))
}

func TestBusterManifestInProductionExternalBuilds(t *testing.T) {
	busterDir := t.TempDir()
	f := newFixture(t, config.ModeExternal, true, func(c *config.Config) {
		c.Buster = &config.BusterConfig{Path: busterDir}
	})
	require.NotNil(t, f.env.Buster)
	f.file(t, "css/vendor/a.css", "a { color: red; }")

	require.True(t, f.env.VendorCSS(t.Context()).OK())
	raw, err := os.ReadFile(filepath.Join(busterDir, buster.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"css/vendor.css"`)
}

func TestBusterDisabledOutsideProduction(t *testing.T) {
	f := newFixture(t, config.ModeExternal, false, func(c *config.Config) {
		c.Buster = &config.BusterConfig{Path: t.TempDir()}
	})
	assert.Nil(t, f.env.Buster)
}

type countingReloader struct{ n atomic.Int32 }

func (c *countingReloader) Reload() { c.n.Add(1) }

func TestRegister(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	g := taskgraph.New()
	require.NoError(t, Register(g, f.env))
	noop := func(context.Context) taskgraph.Result { return taskgraph.Completed() }
	require.NoError(t, RegisterEntryPoints(g, noop, noop))
	require.NoError(t, g.Validate())

	for _, name := range []string{Build, ExternalBuild, Default, External, Express, CSSSvgUpd, CSSSprUpd, JS} {
		assert.True(t, g.Has(name), name)
	}
	assert.Error(t, Register(g, f.env), "names are unique")
}

func TestReloadAfterSteps(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	r := &countingReloader{}
	f.env.SetReloader(r)
	g := taskgraph.New()
	require.NoError(t, Register(g, f.env))

	_, err := g.Run(t.Context(), HTML, Fonts)
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.n.Load(), "only html reloads")

	rep, err := g.Run(t.Context(), Build)
	require.NoError(t, err)
	assert.Equal(t, int32(1+len(ReloadAfter)), r.n.Load())
	assert.Equal(t, taskgraph.StatusCompleted, rep.Results[Build].Status)
}
