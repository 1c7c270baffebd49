package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Example returns the configuration written by `assetbuilder init`.
func Example() *Config {
	return &Config{
		Source: PathSet{
			KeyPath:     "./src/",
			PathApp:     "app",
			PathCSS:     "css",
			PathJS:      "js",
			PathSVG:     "svg",
			PathSprites: "sprites",
			PathFonts:   "fonts",
			PathImages:  "images",
			PathVideo:   "video",
			PathHTML:    "html",
		},
		Destination: PathSet{
			KeyPath:         "./public",
			KeyExternalPath: DefaultExternalPath,
			PathApp:         "/js",
			PathCSS:         "/css",
			PathJS:          "/js",
			PathSprites:     "/images/sprites",
			PathFonts:       "/fonts",
			PathImages:      "/images",
			PathVideo:       "/video",
			PathHTML:        "",
		},
		Server:  ServerConfig{Port: DefaultServerPort, ExternalPort: DefaultExternalServerPort},
		Metrics: MetricsConfig{Path: "/metrics"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Dev server defaults.
const (
	DefaultServerPort         = 3000
	DefaultExternalServerPort = 4000
)

// Init writes the example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("file", path).Build()
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write configuration").
			WithContext("file", path).Build()
	}
	return nil
}
