package rewind

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmylchreest/ytrewind/internal/locate"
	"github.com/jmylchreest/ytrewind/internal/segment"
)

// Stream is the resolver's view of one representation of a live stream.
type Stream interface {
	// Head probes the upstream head cursor.
	Head(ctx context.Context) (segment.Sequence, error)
	// Locator returns a sequence locator over the representation. It is
	// only called when a temporal endpoint has to be resolved.
	Locator(ctx context.Context) (*locate.Locator, error)
	// AnchorDates returns the ingestion start and end dates of a
	// segment; the end date accounts for the actual segment duration.
	AnchorDates(ctx context.Context, sequence segment.Sequence) (start, end time.Time, err error)
}

// Resolver normalizes heterogeneous endpoint pairs into absolute
// sequence ranges, delegating temporal lookups to the sequence locator.
type Resolver struct {
	stream          Stream
	segmentDuration float64
	dvrWindow       time.Duration
	previewDuration time.Duration
	logger          *slog.Logger
}

// NewResolver creates an interval resolver. previewDuration applies only
// to the ".." open endpoint and may be zero when preview mode is not in
// use.
func NewResolver(stream Stream, segmentDuration float64, dvrWindow, previewDuration time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		stream:          stream,
		segmentDuration: segmentDuration,
		dvrWindow:       dvrWindow,
		previewDuration: previewDuration,
		logger:          logger,
	}
}

// Resolve translates the endpoint pair into a concrete sequence range.
func (r *Resolver) Resolve(ctx context.Context, start, end Point) (Interval, error) {
	if start == nil || end == nil {
		return Interval{}, &IntervalError{Reason: "both endpoints are required"}
	}
	if err := checkEndpointKeywords(start, end); err != nil {
		return Interval{}, err
	}
	start, end, err := r.resolveKeywords(ctx, start, end)
	if err != nil {
		return Interval{}, err
	}
	if isRelative(start) && isRelative(end) {
		return Interval{}, &IntervalError{Reason: "two relative endpoints are ambiguous"}
	}

	// Trivial case: both endpoints are absolute sequences, no I/O.
	if startSeq, ok := start.(SequencePoint); ok {
		if endSeq, ok := end.(SequencePoint); ok {
			return newInterval(startSeq.Sequence, endSeq.Sequence)
		}
	}

	locator, err := r.stream.Locator(ctx)
	if err != nil {
		return Interval{}, err
	}

	// Resolve the end first when the start is relative to it.
	var resolved [2]*segment.Sequence
	if isRelative(start) {
		endSequence, err := r.resolveAbsolute(ctx, locator, end, true)
		if err != nil {
			return Interval{}, err
		}
		resolved[1] = &endSequence
	}

	for index, endpoint := range []struct {
		point   Point
		isStart bool
	}{{start, true}, {end, false}} {
		if resolved[index] != nil {
			continue
		}

		var sequence segment.Sequence
		if isRelative(endpoint.point) {
			sequence, err = r.resolveRelative(ctx, locator, endpoint.point, endpoint.isStart, resolved)
		} else {
			sequence, err = r.resolveAbsolute(ctx, locator, endpoint.point, !endpoint.isStart)
		}
		if err != nil {
			return Interval{}, err
		}
		resolved[index] = &sequence
	}

	return newInterval(*resolved[0], *resolved[1])
}

func checkEndpointKeywords(start, end Point) error {
	switch start.(type) {
	case NowPoint:
		return &IntervalError{Reason: "'now' is only valid as the end"}
	case OpenPoint:
		return &IntervalError{Reason: "'..' is only valid as the end"}
	}
	if _, ok := end.(EarliestPoint); ok {
		return &IntervalError{Reason: "'earliest' is only valid as the start"}
	}
	return nil
}

// resolveKeywords replaces "now", "earliest" and ".." with concrete
// points.
func (r *Resolver) resolveKeywords(ctx context.Context, start, end Point) (Point, Point, error) {
	needHead := false
	if _, ok := start.(EarliestPoint); ok {
		needHead = true
	}
	if _, ok := end.(NowPoint); ok {
		needHead = true
	}

	if needHead {
		head, err := r.stream.Head(ctx)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := start.(EarliestPoint); ok {
			depth := segment.Sequence(math.Floor(r.dvrWindow.Seconds() / r.segmentDuration))
			start = SequencePoint{Sequence: head - depth}
		}
		if _, ok := end.(NowPoint); ok {
			end = SequencePoint{Sequence: head - 1}
		}
	}

	if _, ok := end.(OpenPoint); ok {
		if r.previewDuration <= 0 {
			return nil, nil, &IntervalError{Reason: "'..' requires preview mode"}
		}
		count := int64(math.Ceil(r.previewDuration.Seconds() / r.segmentDuration))
		end = OffsetPoint{Count: count}
	}

	return start, end, nil
}

// resolveAbsolute maps a non-relative endpoint to a sequence.
func (r *Resolver) resolveAbsolute(ctx context.Context, locator *locate.Locator, p Point, end bool) (segment.Sequence, error) {
	switch p := p.(type) {
	case SequencePoint:
		return p.Sequence, nil
	case TimePoint:
		timestamp := float64(p.Time.UnixMicro()) / 1e6
		return locator.Find(ctx, timestamp, end)
	default:
		return 0, &IntervalError{Reason: fmt.Sprintf("unexpected endpoint %T", p)}
	}
}

// resolveRelative maps a relative endpoint against the already-resolved
// contrary endpoint: start = end - delta, end = start + delta.
func (r *Resolver) resolveRelative(ctx context.Context, locator *locate.Locator, p Point, isStart bool, resolved [2]*segment.Sequence) (segment.Sequence, error) {
	contraryIndex := 0
	if isStart {
		contraryIndex = 1
	}
	contrary := resolved[contraryIndex]
	if contrary == nil {
		return 0, &IntervalError{Reason: "relative endpoint has no resolved contrary endpoint"}
	}

	switch p := p.(type) {
	case OffsetPoint:
		if isStart {
			return *contrary - segment.Sequence(p.Count), nil
		}
		return *contrary + segment.Sequence(p.Count), nil
	case DurationPoint:
		anchorStart, anchorEnd, err := r.stream.AnchorDates(ctx, *contrary)
		if err != nil {
			return 0, err
		}
		var target time.Time
		if isStart {
			target = anchorEnd.Add(-p.Duration)
		} else {
			target = anchorStart.Add(p.Duration)
		}
		timestamp := float64(target.UnixMicro()) / 1e6
		return locator.Find(ctx, timestamp, !isStart)
	default:
		return 0, &IntervalError{Reason: fmt.Sprintf("unexpected relative endpoint %T", p)}
	}
}

func newInterval(start, end segment.Sequence) (Interval, error) {
	if start > end {
		return Interval{}, &IntervalError{
			Reason: fmt.Sprintf("end sequence %d precedes start sequence %d", end, start),
		}
	}
	return Interval{Start: start, End: end}, nil
}
