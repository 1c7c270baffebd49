// Package metastore holds the metadata produced by the sprite and SVG steps for
// consumption by the stylesheet step.
//
// Each registry is replaced wholesale on every write. Readers get an immutable
// snapshot; a write never becomes visible half-applied.
package metastore

import (
	"maps"
	"sync/atomic"
)

// SpriteSheet is the coordinate map produced by the sprite packer for one folder.
// The value is the decoded JSON document (object keyed by sprite name, or the
// retina layout with sprites/retina_sprites/retina_groups).
type SpriteSheet map[string]any

// SvgIcon is one inlined icon.
type SvgIcon struct {
	Width  string `json:"width"`
	Height string `json:"height"`
	Icon   string `json:"icon"`
}

// Store is scoped to one process run and passed to every step that needs it.
type Store struct {
	sprites atomic.Pointer[map[string]SpriteSheet]
	svg     atomic.Pointer[map[string]SvgIcon]
}

// New returns an empty store.
func New() *Store {
	s := &Store{}
	s.SetSpriteMetadata(nil)
	s.SetSvgMetadata(nil)
	return s
}

// SetSpriteMetadata replaces the sprite registry. The map is copied.
func (s *Store) SetSpriteMetadata(m map[string]SpriteSheet) {
	c := maps.Clone(m)
	if c == nil {
		c = map[string]SpriteSheet{}
	}
	s.sprites.Store(&c)
}

// SetSvgMetadata replaces the SVG registry. The map is copied.
func (s *Store) SetSvgMetadata(m map[string]SvgIcon) {
	c := maps.Clone(m)
	if c == nil {
		c = map[string]SvgIcon{}
	}
	s.svg.Store(&c)
}

// SpriteMetadata returns the current sprite snapshot. Callers must not mutate it.
func (s *Store) SpriteMetadata() map[string]SpriteSheet {
	if p := s.sprites.Load(); p != nil {
		return *p
	}
	return map[string]SpriteSheet{}
}

// SvgMetadata returns the current SVG snapshot. Callers must not mutate it.
func (s *Store) SvgMetadata() map[string]SvgIcon {
	if p := s.svg.Load(); p != nil {
		return *p
	}
	return map[string]SvgIcon{}
}
