package steps

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type bowerManifest struct {
	Main json.RawMessage `json:"main"`
}

// bowerFiles returns the main files of every installed bower package whose
// extension is in exts. Packages are visited in name order; each package's
// main list keeps its declared order.
func bowerFiles(dir string, exts ...string) []string {
	pkgs, err := subdirs(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, pkg := range pkgs {
		for _, f := range bowerMains(filepath.Join(dir, pkg)) {
			if hasExt(f, exts...) {
				out = append(out, f)
			}
		}
	}
	return out
}

func bowerMains(pkgDir string) []string {
	var raw []byte
	for _, name := range []string{".bower.json", "bower.json"} {
		data, err := os.ReadFile(filepath.Join(pkgDir, name))
		if err == nil {
			raw = data
			break
		}
	}
	if raw == nil {
		return nil
	}
	var m bowerManifest
	if err := json.Unmarshal(raw, &m); err != nil || len(m.Main) == 0 {
		return nil
	}
	var mains []string
	var single string
	if err := json.Unmarshal(m.Main, &single); err == nil {
		mains = []string{single}
	} else if err := json.Unmarshal(m.Main, &mains); err != nil {
		return nil
	}
	out := make([]string, 0, len(mains))
	for _, f := range mains {
		p := filepath.Join(pkgDir, filepath.FromSlash(f))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
