package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Load reads a configuration document. The source and destination sections, when
// present, must be mappings; anything else is a fatal configuration error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("file", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().WithContext("file", path).Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return nil, ce.WithContext("file", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOptional loads an override document; a missing file yields (nil, nil).
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return Load(path)
}

// Parse decodes a YAML (or JSON) configuration document. ${VAR} references are
// expanded from the environment before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &root); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration").Fatal().Build()
	}
	if len(root.Content) == 0 {
		return &Config{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, ferrors.ConfigError("configuration root must be a mapping").Build()
	}
	if err := checkSections(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := doc.Decode(&cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration").Fatal().Build()
	}
	return &cfg, nil
}

func checkSections(doc *yaml.Node) error {
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i].Value, doc.Content[i+1]
		if key != "source" && key != "destination" {
			continue
		}
		if val.Tag == "!!null" {
			continue
		}
		if val.Kind != yaml.MappingNode {
			return ferrors.ConfigError(fmt.Sprintf("%s section must be a mapping", key)).
				WithContext("line", val.Line).Build()
		}
		for j := 1; j < len(val.Content); j += 2 {
			if val.Content[j].Kind != yaml.ScalarNode {
				return ferrors.ConfigError(fmt.Sprintf("%s.%s must be a path string", key, val.Content[j-1].Value)).
					WithContext("line", val.Content[j].Line).Build()
			}
		}
	}
	return nil
}
