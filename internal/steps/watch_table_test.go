package steps

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

func targets(entries []WatchEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Target)
	}
	return out
}

func TestWatchTable_Internal(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false)
	table := WatchTable(f.env.Config)
	assert.Equal(t, []string{
		HTML, App, CSSStylus, CSSVendor, JS, JSVendor, Fonts, Images, Video, CSSSvgUpd, CSSSprUpd,
	}, targets(table))

	d := watch.New(nil)
	for _, e := range table {
		require.NoError(t, d.Watch(e.Target, e.Globs...))
	}
	src := func(parts ...string) string { return filepath.Join(append([]string{f.src}, parts...)...) }

	assert.Equal(t, []string{CSSSvgUpd}, d.Targets(src("svg", "icons", "arrow.svg")))
	assert.Equal(t, []string{CSSSprUpd}, d.Targets(src("sprites", "icons", "a.png")))
	assert.Equal(t, []string{CSSStylus}, d.Targets(src("css", "partials", "x.styl")))
	assert.Equal(t, []string{CSSVendor}, d.Targets(src("css", "vendor", "reset.css")))
	assert.Equal(t, []string{JS, JSVendor}, d.Targets(src("js", "vendor", "lib.js")))
	assert.Equal(t, []string{HTML}, d.Targets(src("html", "about.md")))
	assert.Empty(t, d.Targets(filepath.Join(f.dst, "js", "pages.js")))
}

func TestWatchTable_ExternalHasNoMarkup(t *testing.T) {
	f := newFixture(t, config.ModeExternal, false)
	assert.NotContains(t, targets(WatchTable(f.env.Config)), HTML)
}

func TestWatchTable_ExcludesScriptOutputInsideSources(t *testing.T) {
	f := newFixture(t, config.ModeInternal, false, func(c *config.Config) {
		c.Destination[config.KeyPath] = ""
		c.Destination[config.PathJS] = c.Source[config.KeyPath] + "js/dist"
	})
	d := watch.New(nil)
	for _, e := range WatchTable(f.env.Config) {
		require.NoError(t, d.Watch(e.Target, e.Globs...))
	}
	assert.Empty(t, d.Targets(filepath.Join(f.src, "js", "dist", "common.js")))
	assert.Empty(t, d.Targets(filepath.Join(f.src, "js", "dist", "vendor", "lib.js")))
	assert.Equal(t, []string{JS}, d.Targets(filepath.Join(f.src, "js", "pages", "a.js")))
}

func TestWatchTable_SkipsUnconfiguredSources(t *testing.T) {
	res, err := config.Resolve(&config.Config{Source: config.PathSet{config.PathCSS: "css"}}, nil, config.ModeInternal)
	require.NoError(t, err)
	assert.Equal(t, []string{CSSStylus, CSSVendor}, targets(WatchTable(res)))
}
