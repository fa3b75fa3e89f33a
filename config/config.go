// Package config loads the settings of the sqlupsert command from a YAML or
// JSON file, raw content or the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	kraw "github.com/knadh/koanf/providers/rawbytes"
	kfn "github.com/knadh/koanf/v2"

	"github.com/syssam/sqlupsert/dialect/sql"
)

// EnvPrefix is the prefix of the environment variables read by Load.
// SQLUPSERT_LOG__LEVEL=debug sets log.level: a double underscore denotes
// nesting.
const EnvPrefix = "SQLUPSERT_"

// Inspector names.
const (
	InformationSchema = "information_schema"
	Atlas             = "atlas"
)

// Config holds the store connection and client settings.
type Config struct {
	// Driver is the database/sql driver name.
	Driver string `yaml:"driver" default:"postgres" validate:"required,oneof=postgres pgx mysql"`
	DSN    string `yaml:"dsn" validate:"required"`
	// Dialect overrides the dialect derived from Driver.
	Dialect string `yaml:"dialect" validate:"omitempty,oneof=postgres mysql"`
	// Schema is set as the search path (Postgres) for every statement, so
	// unqualified tables and routines resolve to it.
	Schema string `yaml:"schema" validate:"omitempty,max=63"`
	// Prefix overrides the routine name prefix.
	Prefix     string           `yaml:"prefix" validate:"omitempty,max=40"`
	Inspector  string           `yaml:"inspector" default:"information_schema" validate:"oneof=information_schema atlas"`
	Debug      bool             `yaml:"debug"`
	Log        LogConfig        `yaml:"log"`
	Stats      StatsConfig      `yaml:"stats"`
	Definition DefinitionConfig `yaml:"definition"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	Level   string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	NoColor bool   `yaml:"no_color"`
}

// StatsConfig configures query statistics.
type StatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SlowThreshold time.Duration `yaml:"slow_threshold" default:"100ms" validate:"gte=0"`
}

// DefinitionConfig configures routine definition.
type DefinitionConfig struct {
	RetryDelay time.Duration `yaml:"retry_delay" default:"50ms" validate:"gte=0"`
}

// DialectName returns the configured dialect, or the one of the driver.
func (c *Config) DialectName() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	return sql.DialectOf(c.Driver)
}

// LogLevel returns the slog level of Log.Level.
func (c *Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// EnvConfig locates the configuration through the environment.
type EnvConfig struct {
	ConfigFile string `env:"SQLUPSERT_CONFIG_FILE" validate:"omitempty,filepath"`
	// ConfigContent takes precedence over ConfigFile.
	ConfigContent string `env:"SQLUPSERT_CONFIG_CONTENT"`
	ConfigFormat  string `env:"SQLUPSERT_CONFIG_FORMAT" validate:"omitempty,oneof=yaml yml json"`
}

// UnsupportedFormatError is returned for configuration files that are
// neither YAML nor JSON.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return "config: unsupported format: " + e.Format
}

// FromEnv loads the configuration located by EnvConfig. Without a file or
// content the configuration is read from the environment only.
func FromEnv() (*Config, error) {
	var ec EnvConfig
	if err := cenv.Parse(&ec); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := validator.New().Struct(&ec); err != nil {
		return nil, fmt.Errorf("config: invalid environment: %w", err)
	}
	if ec.ConfigContent != "" {
		return LoadContent(ec.ConfigContent, ec.ConfigFormat)
	}
	return Load(ec.ConfigFile)
}

// Load loads the configuration file at path and applies the environment
// overrides. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	k := kfn.New(".")
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("config: open file: %w", err)
		}
		parser, err := parserFor(strings.TrimPrefix(filepath.Ext(abs), "."))
		if err != nil {
			return nil, err
		}
		if err := k.Load(kfile.Provider(abs), parser); err != nil {
			return nil, fmt.Errorf("config: load file: %w", err)
		}
	}
	return finish(k)
}

// LoadContent loads raw YAML or JSON content and applies the environment
// overrides. An empty format is detected from the content.
func LoadContent(content, format string) (*Config, error) {
	if format == "" {
		format = "yaml"
		if strings.HasPrefix(strings.TrimSpace(content), "{") {
			format = "json"
		}
	}
	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	k := kfn.New(".")
	if err := k.Load(kraw.Provider([]byte(content)), parser); err != nil {
		return nil, fmt.Errorf("config: load content: %w", err)
	}
	return finish(k)
}

func parserFor(format string) (kfn.Parser, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return kyaml.Parser(), nil
	case "json":
		return kjson.Parser(), nil
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}
}

func finish(k *kfn.Koanf) (*Config, error) {
	loadEnv(k)
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: set defaults: %w", err)
	}
	if err := k.UnmarshalWithConf("", cfg, kfn.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadEnv(k *kfn.Koanf) {
	_ = k.Load(kenv.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
}
