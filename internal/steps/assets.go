package steps

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// Fonts copies source.fonts into destination.fonts.
func (e *Env) Fonts(_ context.Context) taskgraph.Result {
	return e.copyArea(Fonts, config.PathFonts, nil)
}

// Video copies source.video into destination.video.
func (e *Env) Video(_ context.Context) taskgraph.Result {
	return e.copyArea(Video, config.PathVideo, nil)
}

// Images copies bower images into destination.images/vendor and
// source.images into destination.images. Production builds recompress PNGs.
func (e *Env) Images(_ context.Context) taskgraph.Result {
	var process func([]byte) []byte
	if e.Config.Production {
		process = recompressPNG
	}
	run := e.begin(Images)
	dest, hasDest := e.Config.Dst(config.PathImages)
	if hasDest {
		for _, path := range bowerFiles(e.BowerDir, ".png", ".jpg", ".gif") {
			if err := e.copyOne(run, path, filepath.Join(dest, VendorDir), filepath.Base(path), process); err != nil {
				return run.failed(err)
			}
		}
	}
	res := e.copyAreaRun(run, config.PathImages, process)
	if res.Status == taskgraph.StatusCompletedEmpty && run.written > 0 {
		return run.done()
	}
	return res
}

func (e *Env) copyArea(step, key string, process func([]byte) []byte) taskgraph.Result {
	return e.copyAreaRun(e.begin(step), key, process)
}

// copyAreaRun mirrors the source tree of key into its destination.
func (e *Env) copyAreaRun(run *stepRun, key string, process func([]byte) []byte) taskgraph.Result {
	root, ok := e.srcDir(key)
	if !ok {
		return taskgraph.Empty(key + " source not found")
	}
	dest, ok := e.Config.Dst(key)
	if !ok {
		return taskgraph.Empty(key + " destination not configured")
	}
	files, err := walkFiles(root, nil)
	if err != nil {
		run.warn("list "+key, root, err)
	}
	for _, rel := range files {
		if err := e.copyOne(run, filepath.Join(root, rel), dest, rel, process); err != nil {
			return run.failed(err)
		}
	}
	return run.done()
}

func (e *Env) copyOne(run *stepRun, src, destDir, rel string, process func([]byte) []byte) error {
	if process == nil && e.Buster == nil {
		if err := copyFile(src, filepath.Join(destDir, rel)); err != nil {
			return err
		}
		run.written++
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		run.warn("read asset", src, err)
		return nil
	}
	if process != nil {
		data = process(data)
	}
	return run.write(destDir, rel, data)
}

// recompressPNG re-encodes PNG data at best compression and keeps whichever
// encoding is smaller. Other formats pass through.
func recompressPNG(data []byte) []byte {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil || buf.Len() >= len(data) {
		return data
	}
	return buf.Bytes()
}
