package config

import (
	"errors"
	"sort"
	"sync"

	"dario.cat/mergo"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Mode selects the destination base path.
type Mode string

const (
	ModeInternal Mode = "internal"
	ModeExternal Mode = "external"
)

// ModeFor returns the mode a plain `build` uses for cfg.
func ModeFor(cfg *Config) Mode {
	if cfg != nil && cfg.External {
		return ModeExternal
	}
	return ModeInternal
}

// ErrAlreadyResolved is returned when a Resolver is asked to resolve the same mode twice.
var ErrAlreadyResolved = errors.New("configuration already resolved for this mode")

// Resolved is a configuration with absolute (or process-relative) source and
// destination paths. It is never fed back into Resolve.
type Resolved struct {
	Config
	Mode       Mode
	Production bool
}

// Src returns the resolved source path for key; ok is false when the entry is absent.
func (r *Resolved) Src(key string) (string, bool) {
	v, ok := r.Source[key]
	return v, ok && v != ""
}

// Dst returns the resolved destination path for key.
func (r *Resolved) Dst(key string) (string, bool) {
	v, ok := r.Destination[key]
	return v, ok && v != ""
}

// BusterEnabled reports whether cache-busting manifests are produced.
func (r *Resolved) BusterEnabled() bool {
	return r.Production && r.External && r.Buster != nil && r.Buster.Path != ""
}

// Resolve deep-merges override onto base and prefixes source and destination paths.
// Neither input is modified.
func Resolve(base, override *Config, mode Mode) (*Resolved, error) {
	if mode != ModeInternal && mode != ModeExternal {
		return nil, ferrors.ConfigError("unknown deployment mode").WithContext("mode", string(mode)).Build()
	}
	cfg := base.Clone()
	if override != nil {
		if err := mergo.Merge(cfg, override.Clone(), mergo.WithOverride); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to merge override configuration").Fatal().Build()
		}
	}
	if cfg.Source == nil {
		cfg.Source = PathSet{}
	}
	if cfg.Destination == nil {
		cfg.Destination = PathSet{}
	}

	if root := cfg.Source[KeyPath]; root != "" {
		for _, k := range sortedKeys(cfg.Source) {
			if k == KeyPath {
				continue
			}
			cfg.Source[k] = root + cfg.Source[k]
		}
	}

	if cfg.Destination[KeyExternalPath] == "" {
		cfg.Destination[KeyExternalPath] = DefaultExternalPath
	}
	if _, ok := cfg.Destination[KeyPath]; !ok {
		cfg.Destination[KeyPath] = ""
	}

	basePath := cfg.Destination[KeyPath]
	if mode == ModeExternal {
		basePath = cfg.Destination[KeyExternalPath]
		cfg.External = true
	}
	for _, k := range sortedKeys(cfg.Destination) {
		if k == KeyPath || k == KeyExternalPath {
			continue
		}
		cfg.Destination[k] = basePath + cfg.Destination[k]
	}

	return &Resolved{Config: *cfg, Mode: mode}, nil
}

func sortedKeys(m PathSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolver holds the pristine loaded configuration and guards against resolving
// the same mode twice in one process lifetime.
type Resolver struct {
	mu         sync.Mutex
	base       *Config
	override   *Config
	production bool
	done       map[Mode]bool
}

// NewResolver captures copies of base and override.
func NewResolver(base, override *Config, production bool) *Resolver {
	r := &Resolver{base: base.Clone(), production: production, done: map[Mode]bool{}}
	if override != nil {
		r.override = override.Clone()
	}
	return r
}

// Resolve resolves from the pristine base. A second call for the same mode
// returns ErrAlreadyResolved until Reset is called.
func (r *Resolver) Resolve(mode Mode) (*Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done[mode] {
		return nil, ferrors.WrapError(ErrAlreadyResolved, ferrors.CategoryConfig, "duplicate resolution").
			WithContext("mode", string(mode)).Build()
	}
	res, err := Resolve(r.base, r.override, mode)
	if err != nil {
		return nil, err
	}
	res.Production = r.production
	r.done[mode] = true
	return res, nil
}

// Base returns a copy of the unresolved configuration.
func (r *Resolver) Base() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base.Clone()
}

// Reset forgets previous resolutions.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = map[Mode]bool{}
}
