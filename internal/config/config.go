// Package config provides configuration management for ytrewind using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultRequestTimeout  = 30 * time.Second
	defaultRetryAttempts   = 3
	defaultPreviewDuration = 10 * time.Second
	defaultDVRWindow       = 7 * 24 * time.Hour
	defaultOutputTemplate  = "{{ .ID }}_{{ .InputStartDate }}"
	defaultAudioFormat     = "itag eq 140"
	defaultVideoFormat     = "best"
)

// Config holds all configuration for the application.
type Config struct {
	Logging Logging `mapstructure:"logging"`
	HTTP    HTTP    `mapstructure:"http"`
	Output  Output  `mapstructure:"output"`
	Cache   Cache   `mapstructure:"cache"`
	FFmpeg  FFmpeg  `mapstructure:"ffmpeg"`
	Rewind  Rewind  `mapstructure:"rewind"`
	Formats Formats `mapstructure:"formats"`
}

// Logging holds logging configuration.
type Logging struct {
	Level     string `mapstructure:"level"`  // debug, info, warn, error
	Format    string `mapstructure:"format"` // json, text
	AddSource bool   `mapstructure:"add_source"`
}

// HTTP holds upstream HTTP client configuration.
type HTTP struct {
	// RequestTimeout is the per-request timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RetryAttempts bounds base-URL refresh retries on 403 responses.
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// Output holds excerpt output configuration.
type Output struct {
	// Directory is where merged excerpts are written. Empty means the
	// current working directory.
	Directory string `mapstructure:"directory"`
	// Template is the output filename stem template. See the templating
	// package for available placeholders.
	Template string `mapstructure:"template"`
	// KeepTemp leaves the scratch directory in place after a run.
	KeepTemp bool `mapstructure:"keep_temp"`
}

// Cache holds the on-disk stream-info cache configuration.
type Cache struct {
	Enabled bool `mapstructure:"enabled"`
	// Directory overrides the default user cache location.
	Directory string `mapstructure:"directory"`
}

// FFmpeg holds external muxer binary configuration.
type FFmpeg struct {
	BinaryPath string `mapstructure:"binary_path"` // path to ffmpeg (empty = $PATH lookup)
	ProbePath  string `mapstructure:"probe_path"`  // path to ffprobe (empty = $PATH lookup)
}

// Rewind holds interval resolution configuration.
type Rewind struct {
	// PreviewDuration is the synthesized excerpt length in preview mode.
	PreviewDuration Duration `mapstructure:"preview_duration"`
	// DVRWindow is how far back the upstream retains segments.
	DVRWindow Duration `mapstructure:"dvr_window"`
}

// Formats holds format-spec defaults and user aliases.
type Formats struct {
	// Audio and Video are the default format specs used when the caller
	// passes none.
	Audio string `mapstructure:"audio"`
	Video string `mapstructure:"video"`
	// Aliases extends the built-in @alias table of the format-spec
	// language. Values may reference other aliases.
	Aliases map[string]string `mapstructure:"aliases"`
}

// SetDefaults registers default values on the given Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("http.request_timeout", defaultRequestTimeout)
	v.SetDefault("http.retry_attempts", defaultRetryAttempts)

	v.SetDefault("output.directory", "")
	v.SetDefault("output.template", defaultOutputTemplate)
	v.SetDefault("output.keep_temp", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.directory", "")

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	v.SetDefault("rewind.preview_duration", Duration(defaultPreviewDuration))
	v.SetDefault("rewind.dvr_window", Duration(defaultDVRWindow))

	v.SetDefault("formats.audio", defaultAudioFormat)
	v.SetDefault("formats.video", defaultVideoFormat)
	v.SetDefault("formats.aliases", map[string]string{})
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with YTREWIND_, using underscores for nesting.
// Example: YTREWIND_HTTP_REQUEST_TIMEOUT=10s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ytrewind")
		v.AddConfigPath("$HOME/.ytrewind")
	}

	v.SetEnvPrefix("YTREWIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("config: http.request_timeout must be positive")
	}
	if c.HTTP.RetryAttempts < 0 {
		return fmt.Errorf("config: http.retry_attempts must not be negative")
	}
	if time.Duration(c.Rewind.PreviewDuration) <= 0 {
		return fmt.Errorf("config: rewind.preview_duration must be positive")
	}
	if time.Duration(c.Rewind.DVRWindow) <= 0 {
		return fmt.Errorf("config: rewind.dvr_window must be positive")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
