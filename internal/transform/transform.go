// Package transform declares the processing functions the pipeline steps call
// and bundles their default implementations.
package transform

import (
	"git.home.luguber.info/inful/assetbuilder/internal/transform/markup"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/script"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/sprite"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/styles"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/svg"
)

// SVGOptimizer reduces icon markup.
type SVGOptimizer interface {
	Optimize(src []byte) ([]byte, error)
}

// SpritePacker packs PNG files into an atlas and coordinate map.
type SpritePacker interface {
	Pack(files []string, opts sprite.Options) (*sprite.Sheet, error)
}

// StyleCompiler evaluates a stylesheet source with injected globals.
type StyleCompiler interface {
	Compile(name string, src []byte, g styles.Globals) ([]byte, error)
}

// ScriptBundler resolves an entry file into one script.
type ScriptBundler interface {
	Bundle(entry string, opts script.Options) ([]byte, error)
}

// ScriptTranspiler lowers a single script, optionally with an external source map.
type ScriptTranspiler interface {
	Transpile(name string, src []byte, opts script.Options) ([]byte, error)
	TranspileWithMap(name string, src []byte, opts script.Options) (code, sourceMap []byte, err error)
}

// Minifier minifies production output.
type Minifier interface {
	MinifyCSS(name string, src []byte) ([]byte, error)
	MinifyJS(name string, src []byte) ([]byte, error)
}

// MarkupRenderer renders one page source.
type MarkupRenderer interface {
	Render(name string, src []byte) ([]byte, error)
}

// Toolchain is the set of processing functions used by the steps.
type Toolchain struct {
	SVG        SVGOptimizer
	Sprites    SpritePacker
	Styles     StyleCompiler
	Bundler    ScriptBundler
	Transpiler ScriptTranspiler
	Minifier   Minifier
	// Markup builds a renderer for a page source directory.
	Markup func(root string) MarkupRenderer
}

// Defaults returns the built-in toolchain.
func Defaults() Toolchain {
	return Toolchain{
		SVG:        svg.Optimizer{},
		Sprites:    sprite.Packer{},
		Styles:     styles.Compiler{},
		Bundler:    script.Bundler{},
		Transpiler: script.Transpiler{},
		Minifier:   script.Minifier{},
		Markup: func(root string) MarkupRenderer {
			return markup.Renderer{Root: root}
		},
	}
}
