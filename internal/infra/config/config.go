// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Library  LibraryConfig  `yaml:"library"`
	Playback PlaybackConfig `yaml:"playback"`
	Notifier NotifierConfig `yaml:"notifier"`
	Store    StoreConfig    `yaml:"store"`
}

// LibraryConfig represents track discovery configuration.
type LibraryConfig struct {
	Roots            []string `yaml:"roots" validate:"required,min=1,dive,required"`
	Extensions       []string `yaml:"extensions" default:"[\".mp3\",\".wav\",\".flac\"]" validate:"min=1,dive,startswith=."`
	Watch            *bool    `yaml:"watch" default:"true"`
	RescanDebounceMs int      `yaml:"rescan_debounce_ms" default:"1000" validate:"gte=0,lte=60000"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	TickIntervalMs   int `yaml:"tick_interval_ms" default:"500" validate:"gte=100,lte=5000"`
	SeekStepMs       int `yaml:"seek_step_ms" default:"5000" validate:"gte=1000,lte=60000"`
	InboxSize        int `yaml:"inbox_size" default:"64" validate:"gte=1,lte=4096"`
	SubscriberBuffer int `yaml:"subscriber_buffer" default:"32" validate:"gte=1,lte=4096"`
}

// NotifierConfig represents the notification collaborator configuration.
type NotifierConfig struct {
	Type        string         `yaml:"type" default:"desktop" validate:"oneof=desktop log"`
	DisplayName string         `yaml:"display_name" default:"localbox"`
	Settings    map[string]any `yaml:"settings"`
}

// StoreConfig represents UI snapshot persistence configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"localbox.db" validate:"required"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	cfg.normalize()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("LOCALBOX_LIBRARY_ROOT"); v != "" {
		c.Library.Roots = filepath.SplitList(v)
	}
	if v := os.Getenv("LOCALBOX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// normalize lower-cases extensions and expands and cleans root paths.
func (c *Config) normalize() {
	for i, ext := range c.Library.Extensions {
		c.Library.Extensions[i] = strings.ToLower(ext)
	}
	for i, root := range c.Library.Roots {
		if root == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(root, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == filepath.Separator) {
			if home, err := os.UserHomeDir(); err == nil {
				root = filepath.Join(home, rest)
			}
		}
		c.Library.Roots[i] = filepath.Clean(root)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// TickInterval returns the progress sampling interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}

// SeekStep returns the step used by backward/forward.
func (c *Config) SeekStep() time.Duration {
	return time.Duration(c.Playback.SeekStepMs) * time.Millisecond
}

// RescanDebounce returns the quiet period before a library rescan.
func (c *Config) RescanDebounce() time.Duration {
	return time.Duration(c.Library.RescanDebounceMs) * time.Millisecond
}

// WatchEnabled reports whether the library roots are watched for changes.
func (c *Config) WatchEnabled() bool {
	return c.Library.Watch == nil || *c.Library.Watch
}

// HasExtension reports whether name has one of the configured extensions.
func (c *Config) HasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.Library.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
