// Package rewind resolves heterogeneous rewind interval endpoints into
// concrete segment ranges.
package rewind

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/pkg/duration"
)

// Point is one endpoint of a rewind interval. It is a closed sum of the
// variants below.
type Point interface {
	isPoint()
}

// SequencePoint is an absolute segment sequence.
type SequencePoint struct {
	Sequence segment.Sequence
}

// TimePoint is an absolute, timezone-aware wall-clock date.
type TimePoint struct {
	Time time.Time
}

// OffsetPoint is a relative count of segments from the other endpoint.
type OffsetPoint struct {
	Count int64
}

// DurationPoint is a relative duration from the other endpoint.
type DurationPoint struct {
	Duration time.Duration
}

// NowPoint is the "now" keyword; valid only as an interval end.
type NowPoint struct{}

// EarliestPoint is the "earliest" keyword; valid only as an interval
// start.
type EarliestPoint struct{}

// OpenPoint is the ".." keyword; valid only as an interval end, in
// preview mode.
type OpenPoint struct{}

func (SequencePoint) isPoint() {}
func (TimePoint) isPoint()     {}
func (OffsetPoint) isPoint()   {}
func (DurationPoint) isPoint() {}
func (NowPoint) isPoint()      {}
func (EarliestPoint) isPoint() {}
func (OpenPoint) isPoint()     {}

// isRelative reports whether a point needs the other endpoint to be
// resolved first.
func isRelative(p Point) bool {
	switch p.(type) {
	case OffsetPoint, DurationPoint:
		return true
	default:
		return false
	}
}

// Interval is a resolved rewind interval: an ordered pair of concrete
// sequences with Start <= End.
type Interval struct {
	Start segment.Sequence
	End   segment.Sequence
}

// Len is the number of segments the interval spans.
func (i Interval) Len() int64 {
	return int64(i.End-i.Start) + 1
}

// IntervalError indicates an endpoint pair is inconsistent.
type IntervalError struct {
	Reason string
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid rewind interval: %s", e.Reason)
}

var sequencePattern = regexp.MustCompile(`^\d+$`)

// timeLayouts are the accepted absolute date formats.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05-0700",
	"20060102T150405-0700",
	"20060102T150405Z",
}

// ParsePoint parses one endpoint specification: an absolute sequence
// ("7959120"), an absolute date ("2023-03-25T23:33:55+00:00"), a
// relative duration ("30s", "1h2m"), a relative segment count ("+5"), or
// one of the keywords "now", "earliest" and "..".
func ParsePoint(value string) (Point, error) {
	switch value {
	case "now":
		return NowPoint{}, nil
	case "earliest":
		return EarliestPoint{}, nil
	case "..":
		return OpenPoint{}, nil
	case "":
		return nil, &IntervalError{Reason: "empty endpoint"}
	}

	if sequencePattern.MatchString(value) {
		sequence, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &IntervalError{Reason: fmt.Sprintf("malformed sequence %q", value)}
		}
		return SequencePoint{Sequence: segment.Sequence(sequence)}, nil
	}

	if trimmed, ok := strings.CutPrefix(value, "+"); ok {
		if sequencePattern.MatchString(trimmed) {
			count, _ := strconv.ParseInt(trimmed, 10, 64)
			return OffsetPoint{Count: count}, nil
		}
		if d, err := duration.Parse(trimmed); err == nil && d >= 0 {
			return DurationPoint{Duration: d}, nil
		}
		return nil, &IntervalError{Reason: fmt.Sprintf("malformed relative endpoint %q", value)}
	}

	if d, err := duration.Parse(value); err == nil && d >= 0 {
		return DurationPoint{Duration: d}, nil
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return TimePoint{Time: parsed}, nil
		}
	}

	return nil, &IntervalError{Reason: fmt.Sprintf("endpoint %q not recognized", value)}
}
