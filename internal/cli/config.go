package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Command-line flags
// override every field.
//
//	target_triple: x86_64-unknown-linux-gnu
//	data_layout: "e-m:e-i64:64-f80:128-n8:16:32:64-S128"
//	cache: .tensorgen/cache.db
//	module_name: kernels
type Config struct {
	TargetTriple string `yaml:"target_triple"`
	DataLayout   string `yaml:"data_layout"`
	Cache        string `yaml:"cache"`
	ModuleName   string `yaml:"module_name"`
}

// LoadConfig reads a config file. An empty path yields an empty config.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// pick returns flag when set, otherwise the config value.
func pick(flag, config string) string {
	if flag != "" {
		return flag
	}
	return config
}
