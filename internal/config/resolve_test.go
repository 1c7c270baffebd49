package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func TestResolve_SourcePrefix(t *testing.T) {
	base := &Config{Source: PathSet{"path": "/src/", "css": "css", "js": "js"}}

	res, err := Resolve(base, nil, ModeInternal)
	require.NoError(t, err)

	assert.Equal(t, "/src/css", res.Source["css"])
	assert.Equal(t, "/src/js", res.Source["js"])
	assert.Equal(t, "/src/", res.Source["path"], "source.path itself is unchanged")
	assert.Equal(t, "css", base.Source["css"], "base must not be mutated")
}

func TestResolve_SourceWithoutRootLeftAsIs(t *testing.T) {
	base := &Config{Source: PathSet{"css": "assets/css"}}

	res, err := Resolve(base, nil, ModeInternal)
	require.NoError(t, err)
	assert.Equal(t, "assets/css", res.Source["css"])
}

func TestResolve_DestinationDefaults(t *testing.T) {
	base := &Config{Destination: PathSet{"css": "/css"}}

	internal, err := Resolve(base, nil, ModeInternal)
	require.NoError(t, err)
	assert.Equal(t, "/css", internal.Destination["css"])
	assert.Equal(t, "", internal.Destination[KeyPath])
	assert.Equal(t, DefaultExternalPath, internal.Destination[KeyExternalPath])
	assert.False(t, internal.External)

	external, err := Resolve(base, nil, ModeExternal)
	require.NoError(t, err)
	assert.Equal(t, "./../web/css", external.Destination["css"])
	assert.Equal(t, DefaultExternalPath, external.Destination[KeyExternalPath], "meta keys are not prefixed")
	assert.True(t, external.External)
}

func TestResolve_InternalBasePath(t *testing.T) {
	base := &Config{Destination: PathSet{"path": "./public", "js": "/js", "external_path": "/srv/web"}}

	res, err := Resolve(base, nil, ModeInternal)
	require.NoError(t, err)
	assert.Equal(t, "./public/js", res.Destination["js"])

	res, err = Resolve(base, nil, ModeExternal)
	require.NoError(t, err)
	assert.Equal(t, "/srv/web/js", res.Destination["js"])
}

func TestResolve_OverrideDeepMerge(t *testing.T) {
	base := &Config{
		Source:         PathSet{"path": "/src/", "css": "css", "js": "js"},
		Destination:    PathSet{"css": "/css"},
		ExpressCommand: []string{"node", "app.js"},
	}
	override := &Config{
		Source:         PathSet{"css": "styles"},
		Retina:         true,
		ExpressCommand: []string{"node", "server.js", "--dev"},
	}

	res, err := Resolve(base, override, ModeInternal)
	require.NoError(t, err)

	assert.Equal(t, "/src/styles", res.Source["css"], "override leaf wins")
	assert.Equal(t, "/src/js", res.Source["js"], "sibling keys survive the merge")
	assert.True(t, res.Retina)
	assert.Equal(t, []string{"node", "server.js", "--dev"}, res.ExpressCommand, "slices are replaced, not appended")
	assert.Equal(t, "css", base.Source["css"])
	assert.Equal(t, "styles", override.Source["css"])
}

func TestResolve_ExternalTwiceFromPristineBaseIsStable(t *testing.T) {
	base := &Config{Destination: PathSet{"css": "/css", "js": "/js"}}

	first, err := Resolve(base, nil, ModeExternal)
	require.NoError(t, err)
	second, err := Resolve(base, nil, ModeExternal)
	require.NoError(t, err)

	assert.Equal(t, first.Destination, second.Destination)
}

func TestResolver_GuardsRepeatedResolution(t *testing.T) {
	base := &Config{Destination: PathSet{"css": "/css"}}
	r := NewResolver(base, nil, true)

	res, err := r.Resolve(ModeExternal)
	require.NoError(t, err)
	assert.True(t, res.Production)
	assert.Equal(t, "./../web/css", res.Destination["css"])

	_, err = r.Resolve(ModeExternal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	r.Reset()
	again, err := r.Resolve(ModeExternal)
	require.NoError(t, err)
	assert.Equal(t, "./../web/css", again.Destination["css"], "no double prefixing after reset")
}

func TestResolve_UnknownMode(t *testing.T) {
	_, err := Resolve(&Config{}, nil, Mode("staging"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestResolved_MissingEntriesAreAbsent(t *testing.T) {
	res, err := Resolve(&Config{Source: PathSet{"path": "/src/", "css": "css"}}, nil, ModeInternal)
	require.NoError(t, err)

	_, ok := res.Src(PathSprites)
	assert.False(t, ok)
	css, ok := res.Src(PathCSS)
	assert.True(t, ok)
	assert.Equal(t, "/src/css", css)
}

func TestResolved_BusterEnabled(t *testing.T) {
	cfg := &Config{Buster: &BusterConfig{Path: "./busters"}}
	res, err := Resolve(cfg, nil, ModeExternal)
	require.NoError(t, err)
	assert.False(t, res.BusterEnabled(), "development builds never bust")

	res.Production = true
	assert.True(t, res.BusterEnabled())

	internal, err := Resolve(cfg, nil, ModeInternal)
	require.NoError(t, err)
	internal.Production = true
	assert.False(t, internal.BusterEnabled(), "internal builds never bust")
}
