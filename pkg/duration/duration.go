// Package duration provides human-readable duration parsing.
// It extends Go's standard time.ParseDuration with support for days and
// weeks, the units that matter when addressing a multi-day DVR window.
//
// Supported extended units (case-insensitive, singular/plural variants):
//   - d, day(s): days (24 hours)
//   - w, wk, week(s): weeks (7 days)
//
// Examples:
//   - "7d" = 7 days (the nominal DVR window)
//   - "1w" = 1 week
//   - "2d12h" = 2 days, 12 hours
//   - "3h30m15s" = standard Go format still works
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day represents 24 hours.
	Day = 24 * time.Hour
	// Week represents 7 days.
	Week = 7 * Day
)

// extendedUnitHours maps extended unit names to their hour multiplier.
// Hours are the largest unit time.ParseDuration accepts natively.
var extendedUnitHours = map[string]int64{
	"w":     7 * 24,
	"wk":    7 * 24,
	"wks":   7 * 24,
	"week":  7 * 24,
	"weeks": 7 * 24,

	"d":    24,
	"day":  24,
	"days": 24,
}

// extendedUnitPattern matches extended duration units with optional
// whitespace between number and unit: "7d", "7 days", "1week".
var extendedUnitPattern = regexp.MustCompile(`(?i)(\d+)\s*(weeks?|wks?|w|days?|d)`)

// Parse parses a human-readable duration string.
// Extended units (days, weeks) are converted to hours before delegating
// to time.ParseDuration.
func Parse(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var totalHours int64

	remaining := extendedUnitPattern.ReplaceAllStringFunc(s, func(match string) string {
		matches := extendedUnitPattern.FindStringSubmatch(match)
		if len(matches) == 3 {
			value, _ := strconv.ParseInt(matches[1], 10, 64)
			if multiplier, ok := extendedUnitHours[strings.ToLower(matches[2])]; ok {
				totalHours += value * multiplier
			}
		}
		return ""
	})

	// time.ParseDuration doesn't accept spaces between units.
	remaining = strings.Join(strings.Fields(remaining), "")

	var durationStr string
	if totalHours > 0 {
		durationStr = fmt.Sprintf("%dh", totalHours)
	}
	durationStr += remaining

	if durationStr == "" {
		durationStr = "0s"
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}

	if negative {
		d = -d
	}
	return d, nil
}
