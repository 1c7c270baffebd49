package steps

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/script"
)

// Script output names.
const (
	AppEntry     = "index.js"
	AppBundle    = "app.js"
	CommonScript = "common.js"
	VendorScript = "vendor.js"
	VendorDir    = "vendor"
)

// App bundles source.app/index.js into destination.app/app.js. A bundling
// error is logged and nothing is written.
func (e *Env) App(_ context.Context) taskgraph.Result {
	run := e.begin(App)
	root, ok := e.srcDir(config.PathApp)
	if !ok {
		return taskgraph.Empty("app source not found")
	}
	dest, ok := e.Config.Dst(config.PathApp)
	if !ok {
		return taskgraph.Empty("app destination not configured")
	}
	entry := filepath.Join(root, AppEntry)
	out, err := e.Tools.Bundler.Bundle(entry, e.scriptOptions())
	if err != nil {
		run.warn("bundle app", entry, err)
		return run.done()
	}
	if err := run.write(dest, AppBundle, out); err != nil {
		return run.failed(err)
	}
	return run.done()
}

// Scripts concatenates each subfolder of source.js (except vendor) into
// <folder>.js and the top-level files into common.js. Files are transpiled
// and joined in lexical order so output is stable across runs.
func (e *Env) Scripts(_ context.Context) taskgraph.Result {
	run := e.begin(JSMain)
	root, ok := e.srcDir(config.PathJS)
	if !ok {
		return taskgraph.Empty("js source not found")
	}
	dest, ok := e.Config.Dst(config.PathJS)
	if !ok {
		return taskgraph.Empty("js destination not configured")
	}
	folders, err := subdirs(root)
	if err != nil {
		run.warn("list script folders", root, err)
	}
	for _, folder := range folders {
		if folder == VendorDir {
			continue
		}
		if err := e.concatScripts(run, glob(filepath.Join(root, folder), "*.js"), dest, folder+".js"); err != nil {
			return run.failed(err)
		}
	}
	if err := e.concatScripts(run, glob(root, "*.js"), dest, CommonScript); err != nil {
		return run.failed(err)
	}
	return run.done()
}

// concatScripts transpiles files and writes them joined as dest/name. In
// development an index source map is written next to it as name.map. A
// transpile error drops the whole output file. Only write errors are returned.
func (e *Env) concatScripts(run *stepRun, files []string, dest, name string) error {
	if len(files) == 0 {
		return nil
	}
	opts := e.scriptOptions()
	opts.Production = false
	withMaps := !e.Config.Production
	opts.NoSourceMap = !withMaps
	chunks := make([]script.Chunk, 0, len(files))
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			run.warn("read script", path, err)
			return nil
		}
		var c script.Chunk
		if withMaps {
			c.Code, c.Map, err = e.Tools.Transpiler.TranspileWithMap(e.mapSource(path), src, opts)
		} else {
			c.Code, err = e.Tools.Transpiler.Transpile(filepath.Base(path), src, opts)
		}
		if err != nil {
			run.warn("transpile script", path, err)
			return nil
		}
		chunks = append(chunks, c)
	}
	out, sourceMap, err := script.Concat(name, chunks)
	if err != nil {
		run.warn("join script source maps", name, err)
		return nil
	}
	if e.Config.Production {
		minified, err := e.Tools.Minifier.MinifyJS(name, out)
		if err != nil {
			run.warn("minify script", name, err)
			return nil
		}
		return run.write(dest, name, minified)
	}
	out = append(out, []byte("\n//# sourceMappingURL="+name+".map\n")...)
	if err := run.write(dest, name+".map", sourceMap); err != nil {
		return err
	}
	return run.write(dest, name, out)
}

// mapSource names path in source maps relative to source.js.
func (e *Env) mapSource(path string) string {
	if root, ok := e.srcDir(config.PathJS); ok {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// VendorScripts concatenates bower scripts and source.js/vendor/**/*.js into vendor.js.
func (e *Env) VendorScripts(_ context.Context) taskgraph.Result {
	run := e.begin(JSVendor)
	dest, ok := e.Config.Dst(config.PathJS)
	if !ok {
		return taskgraph.Empty("js destination not configured")
	}
	files := bowerFiles(e.BowerDir, ".js")
	if root, ok := e.srcDir(config.PathJS); ok {
		vendor := filepath.Join(root, VendorDir)
		if isDir(vendor) {
			rels, err := walkFiles(vendor, func(rel string) bool { return hasExt(rel, ".js") })
			if err != nil {
				run.warn("list vendor scripts", vendor, err)
			}
			for _, rel := range rels {
				files = append(files, filepath.Join(vendor, rel))
			}
		}
	}
	if len(files) == 0 {
		return taskgraph.Empty("no vendor scripts")
	}
	parts := make([][]byte, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			run.warn("read vendor script", path, err)
			continue
		}
		parts = append(parts, data)
	}
	out := concat(parts)
	if e.Config.Production {
		minified, err := e.Tools.Minifier.MinifyJS(VendorScript, out)
		if err != nil {
			run.warn("minify vendor.js", VendorScript, err)
			return run.done()
		}
		out = minified
	}
	if err := run.write(dest, VendorScript, out); err != nil {
		return run.failed(err)
	}
	return run.done()
}
