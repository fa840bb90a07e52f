package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "BIKEFLOW_"
	// EnvConfigFile names the env var holding the YAML config path.
	EnvConfigFile = envPrefix + "CONFIG"
	// DefaultConfigFile is read from the working directory when
	// BIKEFLOW_CONFIG is unset.
	DefaultConfigFile = "config.yaml"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) named by BIKEFLOW_CONFIG, else ./config.yaml if present
//  3. env (prefix BIKEFLOW_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		if fi, err := os.Stat(DefaultConfigFile); err == nil && !fi.IsDir() {
			path = DefaultConfigFile
		}
	}
	return LoadFile(ctx, path)
}

// LoadFile is Load with an explicit file path; an empty path skips the file.
func LoadFile(_ context.Context, path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BIKEFLOW_MAX_TOP_N -> max_top_n, BIKEFLOW_THEME__TEXT_COLOR -> theme.text_color
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
