// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Library  LibraryConfig  `yaml:"library"`
	Playback PlaybackConfig `yaml:"playback"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// StorageConfig locates the persisted queue and now-playing records.
type StorageConfig struct {
	Dir            string `yaml:"dir" default:"data"`
	QueueFile      string `yaml:"queue_file" default:"queue.json"`
	NowPlayingFile string `yaml:"now_playing_file" default:"now_playing.json"`
}

// QueuePath returns the path of the persisted queue record.
func (s StorageConfig) QueuePath() string {
	return filepath.Join(s.Dir, s.QueueFile)
}

// NowPlayingPath returns the path of the persisted now-playing record.
func (s StorageConfig) NowPlayingPath() string {
	return filepath.Join(s.Dir, s.NowPlayingFile)
}

// LibraryConfig represents library metadata source configuration.
type LibraryConfig struct {
	Source SourceConfig `yaml:"source"`
}

// SourceConfig represents a single library source. Settings are
// source-specific and decoded per type.
type SourceConfig struct {
	Type     string         `yaml:"type" default:"sqlite" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// SQLiteSettings are the settings of the sqlite library source.
type SQLiteSettings struct {
	Path string `mapstructure:"path"`
}

// SQLiteSettings decodes the source settings for the sqlite source type.
func (l LibraryConfig) SQLiteSettings() (*SQLiteSettings, error) {
	if l.Source.Type != "sqlite" {
		return nil, errors.Newf("library source type is %q, not sqlite", l.Source.Type)
	}
	s := &SQLiteSettings{Path: filepath.Join("data", "library.db")}
	if l.Source.Settings != nil {
		if err := mapstructure.Decode(l.Source.Settings, s); err != nil {
			return nil, errors.Wrap(err, "failed to decode sqlite settings")
		}
	}
	if s.Path == "" {
		return nil, errors.New("sqlite library source requires a path")
	}
	return s, nil
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	ProgressSaveIntervalMs int `yaml:"progress_save_interval_ms" default:"5000" validate:"gte=100,lte=60000"`
	EngineTickMs           int `yaml:"engine_tick_ms" default:"500" validate:"gte=50,lte=5000"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for sensitive or deployment-specific fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TUNEDECK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TUNEDECK_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("TUNEDECK_LIBRARY_PATH"); v != "" {
		if c.Library.Source.Settings == nil {
			c.Library.Source.Settings = map[string]any{}
		}
		c.Library.Source.Settings["path"] = v
	}
	if v := os.Getenv("TUNEDECK_ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Library.Source.Type == "sqlite" {
		if _, err := c.Library.SQLiteSettings(); err != nil {
			return err
		}
	}
	return nil
}
