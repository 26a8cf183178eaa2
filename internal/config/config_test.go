package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 3, cfg.HTTP.RetryAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.Rewind.PreviewDuration))
	assert.Equal(t, 7*24*time.Hour, time.Duration(cfg.Rewind.DVRWindow))
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
http:
  request_timeout: 10s
rewind:
  preview_duration: 4s
  dvr_window: 2d
formats:
  aliases:
    lowq: worst
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 4*time.Second, time.Duration(cfg.Rewind.PreviewDuration))
	assert.Equal(t, 48*time.Hour, time.Duration(cfg.Rewind.DVRWindow))
	assert.Equal(t, "worst", cfg.Formats.Aliases["lowq"])
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  request_timeout: -5s\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSetDefaultsCoversAllSections(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.True(t, v.IsSet("logging.level"))
	assert.True(t, v.IsSet("http.request_timeout"))
	assert.True(t, v.IsSet("output.template"))
	assert.True(t, v.IsSet("cache.enabled"))
	assert.True(t, v.IsSet("rewind.preview_duration"))
	assert.True(t, v.IsSet("formats.video"))
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2d12h")))
	assert.Equal(t, 60*time.Hour, time.Duration(d))

	require.Error(t, d.UnmarshalText([]byte("nope")))
}

func TestDurationUnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"90m"`)))
	assert.Equal(t, 90*time.Minute, time.Duration(d))

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, time.Duration(d))
}
