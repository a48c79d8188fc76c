package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix is the prefix for environment variable overrides.
	envPrefix = "ANSWERD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from the given YAML file, then overrides with
// environment variables, then applies defaults and validates.
//
// Precedence (highest to lowest):
//  1. Environment variables (ANSWERD_SERVER__PORT, ANSWERD_LOGGING__LEVEL, ...)
//  2. YAML config file
//  3. Defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and converting double underscores to dots:
//
//	ANSWERD_SERVER__PORT            -> server.port
//	ANSWERD_EMBEDDINGS__BASE_URL    -> embeddings.base_url
//	ANSWERD_VECTORSTORE__PROVIDER   -> vectorstore.provider
//
// If configPath is empty the default path is used; a missing file is not an
// error, the defaults plus environment apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "answerd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile reads the config file with a size cap to avoid loading
// arbitrarily large files.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file %s exceeds %d bytes", ErrInvalidConfig, path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}
