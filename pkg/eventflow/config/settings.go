package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxRoutingDepth bounds nested routing when settings leave it unset.
const DefaultMaxRoutingDepth = 10

// Failure store drivers.
const (
	StoreNone   = ""
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "EVENTFLOW_"

var (
	// ErrInvalidSettings is wrapped by every Validate failure.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUnsupportedFormat indicates a settings file extension Load does not know.
	ErrUnsupportedFormat = errors.New("unsupported settings format")
)

// Settings configures an engine.
type Settings struct {
	// Queues lists the recognized queue names.
	Queues []string `yaml:"queues" json:"queues" env:"QUEUES" envSeparator:","`

	// MaxRoutingDepth bounds nested routing. Zero means the default.
	MaxRoutingDepth int `yaml:"max_routing_depth" json:"max_routing_depth" env:"MAX_ROUTING_DEPTH"`

	Metrics bool `yaml:"metrics" json:"metrics" env:"METRICS"`
	Tracing bool `yaml:"tracing" json:"tracing" env:"TRACING"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	FailureStore FailureStore `yaml:"failure_store" json:"failure_store" envPrefix:"FAILURE_STORE_"`
}

// FailureStore selects where publication failures are recorded.
type FailureStore struct {
	// Driver is "", "memory", or "sqlite".
	Driver string `yaml:"driver" json:"driver" env:"DRIVER"`

	// Path is the SQLite database path; required for the sqlite driver.
	Path string `yaml:"path" json:"path" env:"PATH"`
}

// Default returns settings with every field at its default.
func Default() Settings {
	return Settings{MaxRoutingDepth: DefaultMaxRoutingDepth}
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(s.Queues))
	for _, q := range s.Queues {
		switch {
		case strings.TrimSpace(q) == "":
			errs = append(errs, fmt.Errorf("%w: empty queue name", ErrInvalidSettings))
		case seen[q]:
			errs = append(errs, fmt.Errorf("%w: duplicate queue %q", ErrInvalidSettings, q))
		}
		seen[q] = true
	}

	if s.MaxRoutingDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max_routing_depth must not be negative, got %d", ErrInvalidSettings, s.MaxRoutingDepth))
	}

	if _, err := ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch s.FailureStore.Driver {
	case StoreNone, StoreMemory:
	case StoreSQLite:
		if s.FailureStore.Path == "" {
			errs = append(errs, fmt.Errorf("%w: failure_store.path is required for the sqlite driver", ErrInvalidSettings))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown failure_store.driver %q", ErrInvalidSettings, s.FailureStore.Driver))
	}

	return errors.Join(errs...)
}

// RoutingDepth returns MaxRoutingDepth or the default when unset.
func (s Settings) RoutingDepth() int {
	if s.MaxRoutingDepth == 0 {
		return DefaultMaxRoutingDepth
	}
	return s.MaxRoutingDepth
}

// Level returns the slog level for LogLevel, defaulting to info.
func (s Settings) Level() slog.Level {
	l, err := ParseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel parses a log level name. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidSettings, name)
	}
	return l, nil
}

// Load reads settings from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// FromYAML parses YAML settings.
func FromYAML(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, nil
}

// FromJSON parses JSON settings.
func FromJSON(data []byte) (Settings, error) {
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return s, nil
}

// FromEnv reads settings from EVENTFLOW_* environment variables. Any
// envFiles are loaded first; variables already set take precedence over
// file contents.
func FromEnv(envFiles ...string) (Settings, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Settings{}, fmt.Errorf("load env files: %w", err)
		}
	}

	s := Default()
	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
