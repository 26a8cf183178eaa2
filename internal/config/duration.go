package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/jmylchreest/ytrewind/pkg/duration"
)

// Duration is a time.Duration that supports human-readable parsing,
// extending Go's standard duration format with 'd' (days) and 'w' (weeks).
//
// Examples:
//   - "7d" = 7 days
//   - "1w" = 1 week
//   - "3h30m" = standard Go format still works
//
// This type implements encoding.TextUnmarshaler for Viper/YAML support
// and json.Unmarshaler for JSON configuration files.
type Duration time.Duration

// ParseDuration parses a human-readable duration string.
func ParseDuration(s string) (Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	return Duration(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML/Viper support.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as a number (nanoseconds) for backwards compatibility
		var ns int64
		if err := json.Unmarshal(data, &ns); err != nil {
			return err
		}
		*d = Duration(ns)
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the standard Go duration representation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// durationDecodeHook lets mapstructure decode strings and plain durations
// into config.Duration fields.
func durationDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseDuration(v)
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		case int, int64, float64:
			return data, nil
		default:
			return nil, fmt.Errorf("config: cannot decode %T into Duration", data)
		}
	}
}
