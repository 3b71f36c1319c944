package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	goyaml "gopkg.in/yaml.v3"
)

const (
	// envPrefix namespaces fieldmem environment variables.
	envPrefix = "FIELDMEM_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from defaults and environment variables only.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables. An empty path skips the file layer. A missing
// file is not an error; deployments often run on defaults plus env.
//
// Environment variables use an underscore separator under the FIELDMEM_
// prefix and map section-first:
//
//	FIELDMEM_INDEX_DEFAULT_RADIUS   -> index.default_radius
//	FIELDMEM_FIELD_MIN_PROBABILITY  -> field.min_probability
//	FIELDMEM_LOGGING_LEVEL          -> logging.level
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults, serialized through the same YAML path so every
	// later layer overrides field by field.
	defaults, err := goyaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshaling defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Layer 2: YAML file, if present.
	if configPath != "" {
		info, err := os.Stat(configPath)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("stat config file: %w", err)
		case info.Size() > maxConfigFileSize:
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		default:
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
			}
		}
	}

	// Layer 3: environment overrides.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// FIELDMEM_INDEX_DEFAULT_RADIUS -> index.default_radius
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
