// Package config loads hub settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultEventName       = "reactive:statechanged"
	DefaultEngine          = "expr"
	DefaultLogLevel        = "info"
	DefaultActivityChannel = "reactive"
)

var validate = validator.New()

// Config captures the settings a hub can be built from.
type Config struct {
	Name      string   `toml:"name" validate:"omitempty,max=64"`
	EventName string   `toml:"event_name" validate:"required,max=128"`
	Engine    string   `toml:"engine" validate:"required,oneof=expr cel js"`
	LogLevel  string   `toml:"log_level" validate:"required,oneof=debug info warn error"`
	Activity  Activity `toml:"activity"`
}

// Activity controls forwarding of state events to activity hooks.
type Activity struct {
	Enabled bool     `toml:"enabled"`
	Channel string   `toml:"channel" validate:"omitempty,max=64"`
	Actor   string   `toml:"actor" validate:"omitempty,max=128"`
	Kinds   []string `toml:"kinds" validate:"omitempty,dive,oneof=loaded created updated deleted"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		EventName: DefaultEventName,
		Engine:    DefaultEngine,
		LogLevel:  DefaultLogLevel,
		Activity:  Activity{Channel: DefaultActivityChannel},
	}
}

// Load reads the TOML file at path, falling back to defaults when it is
// missing. Values left empty in the file keep their defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds a production zap logger at the configured level. The hub
// adds its name to every entry.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (c *Config) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.EventName = strings.TrimSpace(c.EventName)
	if c.EventName == "" {
		c.EventName = DefaultEventName
	}
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	if c.Engine == "" {
		c.Engine = DefaultEngine
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Activity.Actor = strings.TrimSpace(c.Activity.Actor)
	for i, kind := range c.Activity.Kinds {
		c.Activity.Kinds[i] = strings.ToLower(strings.TrimSpace(kind))
	}
	c.Activity.Channel = strings.TrimSpace(c.Activity.Channel)
	if c.Activity.Channel == "" {
		c.Activity.Channel = DefaultActivityChannel
	}
}
