// Package sprite packs a folder of PNG images into one atlas plus a JSON
// coordinate map.
package sprite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RetinaSuffix marks the high resolution variant of an image.
const RetinaSuffix = "@2x"

// Options controls one packing run.
type Options struct {
	// ImageName is the atlas file name, e.g. "icons.png".
	ImageName string
	// DataName names the coordinate map; the step keys metadata by it.
	DataName string
	// Retina pairs every name.png with name@2x.png and emits a second atlas.
	Retina bool
	// RetinaImageName is the retina atlas file name, e.g. "icons-2x.png".
	RetinaImageName string
}

// Sheet is the packer output.
type Sheet struct {
	ImageName       string
	Image           []byte
	RetinaImageName string
	RetinaImage     []byte
	DataName        string
	// Data is the JSON coordinate map.
	Data []byte
}

// Packer lays images out top-down: one column, in lexical file order.
type Packer struct{}

type placed struct {
	name   string
	path   string
	img    image.Image
	x, y   int
	width  int
	height int
}

// Pack reads the given PNG files and builds the atlas.
func (Packer) Pack(files []string, opts Options) (*Sheet, error) {
	if opts.ImageName == "" {
		return nil, fmt.Errorf("sprite: image name is required")
	}
	files = append([]string(nil), files...)
	sort.Strings(files)

	if !opts.Retina {
		items, w, h, err := layout(files)
		if err != nil {
			return nil, err
		}
		img, err := compose(items, w, h)
		if err != nil {
			return nil, err
		}
		data := map[string]any{}
		for _, it := range items {
			data[it.name] = entry(it, w, h, opts.ImageName)
		}
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, err
		}
		return &Sheet{ImageName: opts.ImageName, Image: img, DataName: opts.DataName, Data: raw}, nil
	}

	normal, retina, err := splitRetina(files)
	if err != nil {
		return nil, err
	}
	items, w, h, err := layout(normal)
	if err != nil {
		return nil, err
	}
	ritems, rw, rh, err := layout(retina)
	if err != nil {
		return nil, err
	}
	img, err := compose(items, w, h)
	if err != nil {
		return nil, err
	}
	rimg, err := compose(ritems, rw, rh)
	if err != nil {
		return nil, err
	}

	sprites := make([]map[string]any, 0, len(items))
	retinaSprites := make([]map[string]any, 0, len(ritems))
	groups := make([]map[string]any, 0, len(items))
	for i, it := range items {
		n := entry(it, w, h, opts.ImageName)
		r := entry(ritems[i], rw, rh, opts.RetinaImageName)
		sprites = append(sprites, n)
		retinaSprites = append(retinaSprites, r)
		groups = append(groups, map[string]any{
			"name":   it.name,
			"index":  i,
			"normal": n,
			"retina": r,
		})
	}
	raw, err := json.MarshalIndent(map[string]any{
		"sprites":        sprites,
		"retina_sprites": retinaSprites,
		"retina_groups":  groups,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return &Sheet{
		ImageName:       opts.ImageName,
		Image:           img,
		RetinaImageName: opts.RetinaImageName,
		RetinaImage:     rimg,
		DataName:        opts.DataName,
		Data:            raw,
	}, nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// splitRetina pairs name.png with name@2x.png, both lists in the same order.
func splitRetina(files []string) (normal, retina []string, err error) {
	byName := map[string]string{}
	for _, f := range files {
		if strings.HasSuffix(baseName(f), RetinaSuffix) {
			byName[strings.TrimSuffix(baseName(f), RetinaSuffix)] = f
		}
	}
	for _, f := range files {
		name := baseName(f)
		if strings.HasSuffix(name, RetinaSuffix) {
			continue
		}
		r, ok := byName[name]
		if !ok {
			return nil, nil, fmt.Errorf("sprite: %s has no %s counterpart", filepath.Base(f), RetinaSuffix)
		}
		normal = append(normal, f)
		retina = append(retina, r)
	}
	if len(retina) != len(byName) {
		return nil, nil, fmt.Errorf("sprite: retina images without a normal counterpart")
	}
	return normal, retina, nil
}

func layout(files []string) ([]placed, int, int, error) {
	items := make([]placed, 0, len(files))
	width, y := 0, 0
	for _, f := range files {
		img, err := decode(f)
		if err != nil {
			return nil, 0, 0, err
		}
		b := img.Bounds()
		items = append(items, placed{
			name: baseName(f), path: f, img: img,
			x: 0, y: y, width: b.Dx(), height: b.Dy(),
		})
		y += b.Dy()
		if b.Dx() > width {
			width = b.Dx()
		}
	}
	return items, width, y, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sprite: decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func compose(items []placed, width, height int) ([]byte, error) {
	atlas := image.NewNRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	for _, it := range items {
		r := image.Rect(it.x, it.y, it.x+it.width, it.y+it.height)
		draw.Draw(atlas, r, it.img, it.img.Bounds().Min, draw.Src)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, atlas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func px(v int) string { return fmt.Sprintf("%dpx", v) }

func entry(it placed, totalW, totalH int, image string) map[string]any {
	return map[string]any{
		"name":          it.name,
		"source_image":  it.path,
		"x":             it.x,
		"y":             it.y,
		"offset_x":      -it.x,
		"offset_y":      -it.y,
		"width":         it.width,
		"height":        it.height,
		"total_width":   totalW,
		"total_height":  totalH,
		"image":         image,
		"escaped_image": escapeImage(image),
		"px": map[string]any{
			"x":            px(it.x),
			"y":            px(it.y),
			"offset_x":     px(-it.x),
			"offset_y":     px(-it.y),
			"width":        px(it.width),
			"height":       px(it.height),
			"total_width":  px(totalW),
			"total_height": px(totalH),
		},
	}
}

func escapeImage(s string) string {
	r := strings.NewReplacer(`"`, `\"`, `'`, `\'`, "(", `\(`, ")", `\)`, " ", `\ `)
	return r.Replace(s)
}
