package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"

	"github.com/calendariko/calendariko/internal/logging"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates sections: CALENDARIKO_GOOGLE__CALENDAR_ID.
const EnvPrefix = "CALENDARIKO_"

// Config holds the application configuration
type Config struct {
	App     AppConfig     `koanf:"app"`
	Service ServiceConfig `koanf:"service"`
	View    ViewConfig    `koanf:"view"`
	Google  GoogleConfig  `koanf:"google"`
}

// AppConfig holds the HTTP server settings
type AppConfig struct {
	Port            int           `koanf:"port"`
	LogLevel        string        `koanf:"log_level"`
	Development     bool          `koanf:"development"`
	Timezone        string        `koanf:"timezone"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedRoles    []string      `koanf:"allowed_roles"`
}

// ServiceConfig holds the storage settings
type ServiceConfig struct {
	StateFile string `koanf:"state_file"`
}

// ViewConfig holds the hourly grid row heights in pixels
type ViewConfig struct {
	WeekRowHeight int `koanf:"week_row_height"`
	DayRowHeight  int `koanf:"day_row_height"`
}

// GoogleConfig holds the Google Calendar mirror settings
type GoogleConfig struct {
	Enabled       bool   `koanf:"enabled"`
	CalendarID    string `koanf:"calendar_id"`
	ClientID      string `koanf:"client_id"`
	ClientSecret  string `koanf:"client_secret"`
	RefreshToken  string `koanf:"refresh_token"`
	LookAheadDays int    `koanf:"look_ahead_days"`
	SyncCron      string `koanf:"sync_cron"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.port":               8080,
		"app.log_level":          "info",
		"app.development":        false,
		"app.timezone":           "UTC",
		"app.shutdown_timeout":   "10s",
		"app.allowed_roles":      "ADMIN,ARTIST",
		"service.state_file":     "data/calendariko.db",
		"view.week_row_height":   48,
		"view.day_row_height":    60,
		"google.enabled":         false,
		"google.calendar_id":     "primary",
		"google.look_ahead_days": 60,
		"google.sync_cron":       "*/30 * * * *",
	}
}

// Load reads defaults, then the configuration file (TOML or YAML by
// extension, skipped when missing), then CALENDARIKO_ environment variables.
func Load(path string) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
			logger.Info().Str("path", path).Msg("Config file not found, using defaults and environment variables")
		} else {
			logger.Info().Str("path", path).Msg("Loaded configuration from file")
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Relative state files live next to the configuration file
	if path != "" && cfg.Service.StateFile != ":memory:" && !filepath.IsAbs(cfg.Service.StateFile) {
		cfg.Service.StateFile = filepath.Join(filepath.Dir(path), cfg.Service.StateFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Int("port", cfg.App.Port).Str("state_file", cfg.Service.StateFile).Bool("google_enabled", cfg.Google.Enabled).Msg("Configuration loaded")
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	}
	return nil, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.App.Port < 1 || c.App.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("app.port must be between 1 and 65535, got %d", c.App.Port))
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("app.timezone %q is invalid: %w", c.App.Timezone, err))
	}
	if c.App.ShutdownTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("app.shutdown_timeout must be positive"))
	}
	if c.Service.StateFile == "" {
		result = multierror.Append(result, fmt.Errorf("service.state_file is required"))
	}
	if c.View.WeekRowHeight < 1 {
		result = multierror.Append(result, fmt.Errorf("view.week_row_height must be positive"))
	}
	if c.View.DayRowHeight < 1 {
		result = multierror.Append(result, fmt.Errorf("view.day_row_height must be positive"))
	}

	if c.Google.Enabled {
		if c.Google.CalendarID == "" {
			result = multierror.Append(result, fmt.Errorf("google.calendar_id is required when the mirror is enabled"))
		}
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
			result = multierror.Append(result, fmt.Errorf("google.client_id and google.client_secret are required when the mirror is enabled"))
		}
		if c.Google.RefreshToken == "" {
			result = multierror.Append(result, fmt.Errorf("google.refresh_token is required when the mirror is enabled"))
		}
		if c.Google.LookAheadDays < 1 {
			result = multierror.Append(result, fmt.Errorf("google.look_ahead_days must be positive"))
		}
		if _, err := cron.ParseStandard(c.Google.SyncCron); err != nil {
			result = multierror.Append(result, fmt.Errorf("google.sync_cron %q is invalid: %w", c.Google.SyncCron, err))
		}
	}

	return result.ErrorOrNil()
}

// Location returns the configured timezone, or UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}
