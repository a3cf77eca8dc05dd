package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	// Server settings
	Server struct {
		Name     string `yaml:"name" toml:"name" json:"name" env:"IRCSERV_NAME" validate:"required"`
		Host     string `yaml:"host" toml:"host" json:"host" env:"IRCSERV_HOST" validate:"required"`
		Port     int    `yaml:"port" toml:"port" json:"port" env:"IRCSERV_PORT" validate:"min=6665,max=6669"`
		Password string `yaml:"password" toml:"password" json:"password" env:"IRCSERV_PASSWORD" validate:"min=8,max=64,printascii,excludes= "`
	} `yaml:"server" toml:"server" json:"server"`

	// Resource limits
	Limits struct {
		MaxClients int `yaml:"max_clients" toml:"max_clients" json:"max_clients" env:"IRCSERV_MAX_CLIENTS" validate:"min=1"`
		Backlog    int `yaml:"backlog" toml:"backlog" json:"backlog" env:"IRCSERV_BACKLOG" validate:"min=1"`
	} `yaml:"limits" toml:"limits" json:"limits"`

	// Logging settings
	Log struct {
		Verbose bool `yaml:"verbose" toml:"verbose" json:"verbose" env:"IRCSERV_VERBOSE"`
	} `yaml:"log" toml:"log" json:"log"`

	// Configuration source for reference
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Default returns a configuration with the built-in defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "ft_irc"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 6667
	cfg.Limits.MaxClients = 128
	cfg.Limits.Backlog = 8
	return cfg
}

// Load loads configuration from a file, applying defaults first and
// environment variable overrides after
func Load(source string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(source); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// FromEnv returns the default configuration with environment variable
// overrides applied, for running without a config file
func FromEnv() *Config {
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg
}

// Validate checks the structural constraints on the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// loadFromFile loads configuration from a file, by extension
func (c *Config) loadFromFile(source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(source, ".yaml") || strings.HasSuffix(source, ".yml"):
		err = yaml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		// Default to YAML
		err = yaml.Unmarshal(data, c)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem())
}

// applyEnvOverridesRecursive recursively applies environment variable overrides
func applyEnvOverridesRecursive(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		envTag := field.Tag.Get("env")

		if envTag != "" {
			if envValue, exists := os.LookupEnv(envTag); exists {
				setFieldFromEnv(fieldValue, envValue)
			}
		} else if field.Type.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(fieldValue)
		}
	}
}

// setFieldFromEnv sets a field's value from an environment variable
func setFieldFromEnv(field reflect.Value, envValue string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := parseInt(envValue); err == nil {
			field.SetInt(v)
		}
	case reflect.Bool:
		field.SetBool(parseBool(envValue))
	}
}

// Helper functions for parsing different types
func parseInt(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "y"
}

// GetListenAddress returns the formatted listen address for the server
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
