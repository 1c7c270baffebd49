// Package script bundles, transpiles and minifies JavaScript and CSS with esbuild.
package script

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Options selects development or production output.
type Options struct {
	// Production minifies and drops source maps.
	Production bool
	// NoSourceMap drops source maps in development too.
	NoSourceMap bool
}

func (o Options) sourceMap() api.SourceMap {
	if o.Production || o.NoSourceMap {
		return api.SourceMapNone
	}
	return api.SourceMapInline
}

// Bundler resolves the module graph of an entry file into one script.
type Bundler struct{}

// Bundle returns the bundled script for entry.
func (Bundler) Bundle(entry string, opts Options) ([]byte, error) {
	res := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Bundle:            true,
		Write:             false,
		Outfile:           filepath.Join(filepath.Dir(entry), "app.js"),
		Target:            api.ES2015,
		Format:            api.FormatIIFE,
		Loader:            map[string]api.Loader{".js": api.LoaderJSX},
		JSX:               api.JSXTransform,
		Sourcemap:         opts.sourceMap(),
		MinifyWhitespace:  opts.Production,
		MinifyIdentifiers: opts.Production,
		MinifySyntax:      opts.Production,
		LogLevel:          api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors)
	}
	for _, f := range res.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") {
			return f.Contents, nil
		}
	}
	return nil, fmt.Errorf("bundle %s: no output", entry)
}

// Transpiler lowers one script file to ES2015.
type Transpiler struct{}

// Transpile returns the lowered source of name.
func (Transpiler) Transpile(name string, src []byte, opts Options) ([]byte, error) {
	res := api.Transform(string(src), api.TransformOptions{
		Sourcefile:        name,
		Loader:            api.LoaderJSX,
		JSX:               api.JSXTransform,
		Target:            api.ES2015,
		Sourcemap:         opts.sourceMap(),
		MinifyWhitespace:  opts.Production,
		MinifyIdentifiers: opts.Production,
		MinifySyntax:      opts.Production,
		LogLevel:          api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors)
	}
	return res.Code, nil
}

// TranspileWithMap lowers name like Transpile and returns its source map
// separately instead of inlining it.
func (Transpiler) TranspileWithMap(name string, src []byte, opts Options) (code, sourceMap []byte, err error) {
	res := api.Transform(string(src), api.TransformOptions{
		Sourcefile:        name,
		Loader:            api.LoaderJSX,
		JSX:               api.JSXTransform,
		Target:            api.ES2015,
		Sourcemap:         api.SourceMapExternal,
		MinifyWhitespace:  opts.Production,
		MinifyIdentifiers: opts.Production,
		MinifySyntax:      opts.Production,
		LogLevel:          api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, nil, messagesError(res.Errors)
	}
	return res.Code, res.Map, nil
}

// Minifier minifies scripts and stylesheets.
type Minifier struct{}

// MinifyCSS returns minified CSS.
func (Minifier) MinifyCSS(name string, src []byte) ([]byte, error) {
	return minify(name, src, api.LoaderCSS)
}

// MinifyJS returns minified JavaScript without changing its syntax level.
func (Minifier) MinifyJS(name string, src []byte) ([]byte, error) {
	return minify(name, src, api.LoaderJS)
}

func minify(name string, src []byte, loader api.Loader) ([]byte, error) {
	res := api.Transform(string(src), api.TransformOptions{
		Sourcefile:        name,
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifyIdentifiers: loader != api.LoaderCSS,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors)
	}
	return res.Code, nil
}

func messagesError(msgs []api.Message) error {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
