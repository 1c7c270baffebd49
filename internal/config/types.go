package config

import (
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Meta keys excluded from path prefixing.
const (
	KeyPath         = "path"
	KeyExternalPath = "external_path"
)

// DefaultExternalPath is used when destination.external_path is not configured.
const DefaultExternalPath = "./../web"

// Named path fragments used by the pipeline steps.
const (
	PathApp     = "app"
	PathCSS     = "css"
	PathJS      = "js"
	PathSVG     = "svg"
	PathSprites = "sprites"
	PathFonts   = "fonts"
	PathImages  = "images"
	PathVideo   = "video"
	PathHTML    = "html"
)

// PathSet maps a named fragment (css, js, ...) to a path string.
type PathSet map[string]string

// Config is the build configuration as loaded from disk, before resolution.
type Config struct {
	Source         PathSet        `yaml:"source"`
	Destination    PathSet        `yaml:"destination"`
	External       bool           `yaml:"external,omitempty"`
	Retina         bool           `yaml:"retina,omitempty"`
	Buster         *BusterConfig  `yaml:"buster,omitempty"`
	Express        ExpressSetting `yaml:"express,omitempty"`
	Proxy          string         `yaml:"proxy,omitempty"`
	ExpressCommand []string       `yaml:"express_command,omitempty"`
	ExpressWatch   []string       `yaml:"express_watch,omitempty"`
	Server         ServerConfig   `yaml:"server,omitempty"`
	Metrics        MetricsConfig  `yaml:"metrics,omitempty"`
	Log            LogConfig      `yaml:"log,omitempty"`
}

// BusterConfig enables cache-busting manifests written to Path.
type BusterConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Port         int  `yaml:"port,omitempty"`
	ExternalPort int  `yaml:"external_port,omitempty"`
	NoLiveReload bool `yaml:"no_live_reload,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint on the dev server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// ExpressSetting is either a boolean (proxy to the default app URL) or an explicit URL.
type ExpressSetting struct {
	Enabled bool
	URL     string
	set     bool
}

// DefaultExpressURL is the proxied app address when express is `true`.
const DefaultExpressURL = "http://localhost:3500/"

// Target returns the URL the dev server should proxy to, or "" when express is off.
func (e ExpressSetting) Target() string {
	if !e.Enabled {
		return ""
	}
	if e.URL != "" {
		return e.URL
	}
	return DefaultExpressURL
}

func (e *ExpressSetting) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &yaml.TypeError{Errors: []string{"express must be a boolean or a URL string"}}
	}
	var b bool
	if node.Tag == "!!bool" {
		if err := node.Decode(&b); err != nil {
			return err
		}
		*e = ExpressSetting{Enabled: b, set: true}
		return nil
	}
	*e = ExpressSetting{Enabled: node.Value != "", URL: node.Value, set: true}
	return nil
}

func (e ExpressSetting) MarshalYAML() (any, error) {
	if e.URL != "" {
		return e.URL, nil
	}
	return e.Enabled, nil
}

// IsSet reports whether the document mentioned express at all, including `express: false`.
func (e ExpressSetting) IsSet() bool { return e.set || !e.IsZero() }

// IsZero lets omitempty drop an unset express setting.
func (e ExpressSetting) IsZero() bool { return !e.Enabled && e.URL == "" }

// Clone returns a deep copy; resolution never mutates the loaded configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	out := *c
	out.Source = maps.Clone(c.Source)
	out.Destination = maps.Clone(c.Destination)
	out.ExpressCommand = slices.Clone(c.ExpressCommand)
	out.ExpressWatch = slices.Clone(c.ExpressWatch)
	if c.Buster != nil {
		b := *c.Buster
		out.Buster = &b
	}
	return &out
}
