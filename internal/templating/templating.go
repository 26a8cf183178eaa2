// Package templating renders output filename stems from excerpt
// metadata.
package templating

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
)

// timestampLayout is the compact ISO-8601 form used in default output
// names.
const timestampLayout = "20060102T150405Z0700"

// Context carries the values available to output templates.
type Context struct {
	// ID is the stream's video ID.
	ID string
	// Title and Author come from the video info.
	Title  string
	Author string
	// InputStart and InputEnd are the caller's requested interval dates.
	InputStart time.Time
	InputEnd   time.Time
	// ActualStart and ActualEnd are the excerpt's measured dates.
	ActualStart time.Time
	ActualEnd   time.Time
}

// InputStartDate formats the requested start compactly.
func (c Context) InputStartDate() string { return formatDate(c.InputStart) }

// InputEndDate formats the requested end compactly.
func (c Context) InputEndDate() string { return formatDate(c.InputEnd) }

// ActualStartDate formats the measured start compactly.
func (c Context) ActualStartDate() string { return formatDate(c.ActualStart) }

// ActualEndDate formats the measured end compactly.
func (c Context) ActualEndDate() string { return formatDate(c.ActualEnd) }

// Duration formats the requested interval length, e.g. "PT1M30S".
func (c Context) Duration() string {
	if c.InputStart.IsZero() || c.InputEnd.IsZero() {
		return ""
	}
	d := c.InputEnd.Sub(c.InputStart).Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes == 0 {
		return fmt.Sprintf("PT%dS", seconds)
	}
	return fmt.Sprintf("PT%dM%dS", minutes, seconds)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

// unsafeChars matches everything that is not POSIX-filename friendly.
var unsafeChars = regexp.MustCompile(`[^\w.\-+]`)

// collapseRuns matches runs of underscores produced by sanitization.
var collapseRuns = regexp.MustCompile(`_{2,}`)

// SanitizeStem makes a rendered stem safe to use as a filename: spaces
// and path-hostile characters become underscores, runs of underscores
// collapse, and leading and trailing underscores are trimmed.
func SanitizeStem(stem string) string {
	sanitized := strings.ReplaceAll(stem, " ", "_")
	sanitized = unsafeChars.ReplaceAllString(sanitized, "_")
	sanitized = collapseRuns.ReplaceAllString(sanitized, "_")
	return strings.Trim(sanitized, "_")
}

// Render executes an output stem template against the context and
// sanitizes the result.
func Render(templateText string, ctx Context) (string, error) {
	tmpl, err := template.New("output").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("parsing output template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("rendering output template: %w", err)
	}
	return SanitizeStem(sb.String()), nil
}
