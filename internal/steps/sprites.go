package steps

import (
	"context"
	"encoding/json"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metastore"
	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
	"git.home.luguber.info/inful/assetbuilder/internal/transform/sprite"
)

// Sprites packs each subfolder of source.sprites into <folder>.png and
// replaces the sprite metadata with the coordinate maps, keyed by folder.
func (e *Env) Sprites(_ context.Context) taskgraph.Result {
	run := e.begin(CSSSprites)
	root, ok := e.srcDir(config.PathSprites)
	if !ok {
		e.Store.SetSpriteMetadata(nil)
		return taskgraph.Empty("sprites source not found")
	}
	folders, err := subdirs(root)
	if err != nil || len(folders) == 0 {
		e.Store.SetSpriteMetadata(nil)
		return taskgraph.Empty("no sprite folders")
	}
	dest, hasDest := e.Config.Dst(config.PathSprites)

	sheets := map[string]metastore.SpriteSheet{}
	for _, folder := range folders {
		files := glob(filepath.Join(root, folder), "*.png")
		if len(files) == 0 {
			run.log.Debug("Sprite folder has no images", logfields.Path(folder))
			continue
		}
		opts := sprite.Options{ImageName: folder + ".png", DataName: folder}
		if e.Config.Retina {
			opts.Retina = true
			opts.RetinaImageName = folder + "-2x.png"
		}
		sheet, err := e.Tools.Sprites.Pack(files, opts)
		if err != nil {
			run.warn("pack sprites", filepath.Join(root, folder), err)
			continue
		}
		var data metastore.SpriteSheet
		if err := json.Unmarshal(sheet.Data, &data); err != nil {
			run.warn("parse sprite coordinates", folder, err)
			continue
		}
		if hasDest {
			if err := run.write(dest, sheet.ImageName, sheet.Image); err != nil {
				return run.failed(err)
			}
			if sheet.RetinaImage != nil {
				if err := run.write(dest, sheet.RetinaImageName, sheet.RetinaImage); err != nil {
					return run.failed(err)
				}
			}
		}
		sheets[sheet.DataName] = data
	}
	e.Store.SetSpriteMetadata(sheets)
	run.log.Debug("Sprite metadata replaced", logfields.Count(len(sheets)))
	return run.done()
}
