package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a set of include globs with optional "!" exclusions. Globs use
// doublestar syntax: *, ?, [class], {alt,ernatives} and ** (any number of
// directories).
type Pattern struct {
	globs   []string
	include []string
	exclude []string
	roots   []string
}

// Compile builds a Pattern. Relative globs are made absolute against the
// working directory.
func Compile(globs ...string) (*Pattern, error) {
	p := &Pattern{globs: append([]string(nil), globs...)}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		negate := strings.HasPrefix(g, "!")
		g = strings.TrimPrefix(g, "!")
		root, rest := splitGlob(g)
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve glob %s: %w", g, err)
		}
		full := escapeMeta(filepath.ToSlash(abs))
		if rest != "" {
			full = strings.TrimSuffix(full, "/") + "/" + rest
		}
		if !doublestar.ValidatePattern(full) {
			return nil, fmt.Errorf("compile glob %s: %w", g, doublestar.ErrBadPattern)
		}
		if negate {
			p.exclude = append(p.exclude, full)
			continue
		}
		p.include = append(p.include, full)
		p.roots = append(p.roots, abs)
	}
	if len(p.include) == 0 {
		return nil, fmt.Errorf("pattern %v has no include glob", globs)
	}
	return p, nil
}

// Match reports whether path is included and not excluded. Exclusions win.
func (p *Pattern) Match(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	name := filepath.ToSlash(abs)
	for _, g := range p.exclude {
		if ok, _ := doublestar.Match(g, name); ok {
			return false
		}
	}
	for _, g := range p.include {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
	}
	return false
}

// Roots returns the literal prefix of every include glob: the directory in
// front of the first wildcard, or the whole path of a literal glob.
func (p *Pattern) Roots() []string { return append([]string(nil), p.roots...) }

func (p *Pattern) String() string { return strings.Join(p.globs, ",") }

// splitGlob separates the literal prefix from the wildcard part. A glob
// without wildcards is all root.
func splitGlob(g string) (root, rest string) {
	slashed := filepath.ToSlash(g)
	base, pattern := doublestar.SplitPattern(slashed)
	if !hasMeta(pattern) {
		return filepath.FromSlash(slashed), ""
	}
	return filepath.FromSlash(base), pattern
}

const metaChars = `*?[]{}\`

func hasMeta(s string) bool { return strings.ContainsAny(s, metaChars) }

// escapeMeta quotes glob syntax in a literal path prefix.
func escapeMeta(s string) string {
	if !hasMeta(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(metaChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
