package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Goraved/aqareport/internal/schema"
)

// Format is the syntax of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FileNames lists the configuration files looked up by Discover, in order.
var FileNames = []string{".aqareport.yaml", ".aqareport.yml", ".aqareport.toml"}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Discover returns the first configuration file found in dir or any of its
// parents, or "" if there is none.
func Discover(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads and parses a configuration file without defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// LoadAndValidate reads a config file, checks it against the schema,
// applies defaults, validates, and returns warnings for unknown keys.
func LoadAndValidate(path string) (*Config, []string, error) {
	cfg, warnings, err := load(path)
	if err != nil {
		return nil, warnings, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Resolve loads the configuration the CLI runs with: the given file, or
// the discovered one, or the defaults. Environment overrides are applied
// last. An empty path triggers discovery from the working directory.
func Resolve(path string, getenv func(string) string) (*Config, []string, error) {
	if path == "" {
		path = Discover(".")
	}
	var (
		cfg      *Config
		warnings []string
		err      error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, warnings, err = LoadAndValidate(path)
		if err != nil {
			return nil, warnings, err
		}
	}
	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, warnings, err
	}
	if err := Validate(cfg); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

func load(path string) (*Config, []string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes configuration data, validates it against the embedded
// JSON schema and reports unknown keys as warnings.
func Parse(data []byte, format Format) (*Config, []string, error) {
	var (
		cfg Config
		raw map[string]any
	)
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported config format %q", format)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert config for schema validation: %w", err)
	}
	if err := schema.ValidateConfig(doc); err != nil {
		return nil, nil, err
	}

	return &cfg, detectUnknownFields(raw), nil
}
