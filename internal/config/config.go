// Package config loads and validates CampusGate YAML configuration.
// Values resolve in three layers: built-in defaults, then the config
// file, then CAMPUSGATE_* environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment overrides, e.g.
// CAMPUSGATE_DB_PATH or CAMPUSGATE_AUTH_REQUIRED.
const envPrefix = "campusgate"

// Accepted registry.source values.
const (
	RegistryDB   = "db"
	RegistryFile = "file"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb" split_words:"true"`
}

// AuthConfig selects between the gated and public deployments.
// When Required is false the portal serves every visitor without
// login and the session layer is not built at all.
type AuthConfig struct {
	Required          bool `yaml:"required"`
	SessionTTLMinutes int  `yaml:"session_ttl_minutes" split_words:"true"`
}

// UploadsConfig holds the evidence photo directory.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// RegistryConfig selects the vehicle authorization source. "db" reads
// the vehicles table; "file" loads a newline-delimited plate list once
// at startup.
type RegistryConfig struct {
	Source string `yaml:"source"`
	File   string `yaml:"file"`
}

// Config mirrors the campusgate.yaml schema.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Registry RegistryConfig `yaml:"registry"`
}

// Default returns the configuration used when the file and environment
// provide nothing. Defaults come first so a YAML file can turn
// auth.required off explicitly.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		DB:  DBConfig{Path: "./data/campusgate.db"},
		HTTP: HTTPConfig{
			Bind:        "127.0.0.1",
			Port:        8310,
			MaxUploadMB: 5,
		},
		Auth: AuthConfig{
			Required:          true,
			SessionTTLMinutes: 720,
		},
		Uploads:  UploadsConfig{Dir: "./data/uploads"},
		Registry: RegistryConfig{Source: RegistryDB},
	}
}

// Load resolves the effective configuration. path may be empty, in
// which case only defaults and environment overrides apply. It returns
// a fully populated Config or a descriptive error.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, err
	}
	// Make paths stable for daemon.
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	c.Uploads.Dir = strings.TrimSpace(c.Uploads.Dir)
	c.Registry.File = strings.TrimSpace(c.Registry.File)
	c.Registry.Source = strings.ToLower(strings.TrimSpace(c.Registry.Source))
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	if c.HTTP.MaxUploadMB < 1 || c.HTTP.MaxUploadMB > 1024 {
		return errors.New("http.max_upload_mb is invalid")
	}
	if c.Auth.SessionTTLMinutes < 1 {
		return errors.New("auth.session_ttl_minutes is invalid")
	}
	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir is required")
	}
	switch c.Registry.Source {
	case RegistryDB:
	case RegistryFile:
		if c.Registry.File == "" {
			return errors.New("registry.file is required when registry.source is file")
		}
	default:
		return errors.New("registry.source must be db or file")
	}
	return nil
}
