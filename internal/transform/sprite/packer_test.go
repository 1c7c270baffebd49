package sprite

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestPack_TopDown(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePNG(t, filepath.Join(dir, "c.png"), 12, 3),
		writePNG(t, filepath.Join(dir, "a.png"), 10, 5),
		writePNG(t, filepath.Join(dir, "b.png"), 8, 7),
	}

	sheet, err := Packer{}.Pack(files, Options{ImageName: "icons.png", DataName: "icons"})
	require.NoError(t, err)
	assert.Equal(t, "icons.png", sheet.ImageName)
	assert.Equal(t, "icons", sheet.DataName)
	assert.Nil(t, sheet.RetinaImage)

	atlas, err := png.Decode(bytes.NewReader(sheet.Image))
	require.NoError(t, err)
	assert.Equal(t, 12, atlas.Bounds().Dx())
	assert.Equal(t, 15, atlas.Bounds().Dy())

	var data map[string]map[string]any
	require.NoError(t, json.Unmarshal(sheet.Data, &data))
	require.Len(t, data, 3)
	assert.InDelta(t, 0, data["a"]["y"], 0)
	assert.InDelta(t, 5, data["b"]["y"], 0)
	assert.InDelta(t, 12, data["c"]["y"], 0)
	assert.InDelta(t, -12, data["c"]["offset_y"], 0)
	assert.InDelta(t, 15, data["c"]["total_height"], 0)
	assert.Equal(t, "icons.png", data["a"]["image"])
	px := data["b"]["px"].(map[string]any)
	assert.Equal(t, "-5px", px["offset_y"])
	assert.Equal(t, "8px", px["width"])
}

func TestPack_Retina(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writePNG(t, filepath.Join(dir, "a.png"), 2, 2),
		writePNG(t, filepath.Join(dir, "a@2x.png"), 4, 4),
		writePNG(t, filepath.Join(dir, "b.png"), 3, 1),
		writePNG(t, filepath.Join(dir, "b@2x.png"), 6, 2),
	}
	sheet, err := Packer{}.Pack(files, Options{
		ImageName: "icons.png", DataName: "icons",
		Retina: true, RetinaImageName: "icons-2x.png",
	})
	require.NoError(t, err)

	atlas, err := png.Decode(bytes.NewReader(sheet.Image))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), atlas.Bounds())
	retina, err := png.Decode(bytes.NewReader(sheet.RetinaImage))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 6), retina.Bounds())

	var data struct {
		Sprites       []map[string]any `json:"sprites"`
		RetinaSprites []map[string]any `json:"retina_sprites"`
		RetinaGroups  []map[string]any `json:"retina_groups"`
	}
	require.NoError(t, json.Unmarshal(sheet.Data, &data))
	assert.Len(t, data.Sprites, 2)
	assert.Len(t, data.RetinaSprites, 2)
	require.Len(t, data.RetinaGroups, 2)
	assert.Equal(t, "a", data.RetinaGroups[0]["name"])
	assert.Equal(t, "icons-2x.png", data.RetinaSprites[1]["image"])
}

func TestPack_RetinaRequiresPairs(t *testing.T) {
	dir := t.TempDir()
	files := []string{writePNG(t, filepath.Join(dir, "a.png"), 2, 2)}
	_, err := Packer{}.Pack(files, Options{ImageName: "x.png", Retina: true, RetinaImageName: "x-2x.png"})
	require.Error(t, err)
}

func TestPack_InvalidImage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))
	_, err := Packer{}.Pack([]string{bad}, Options{ImageName: "x.png"})
	require.Error(t, err)
}
