// Package locate finds the segment whose media contains a desired
// timestamp.
//
// The location algorithm has three steps: (1) roughly estimate a sequence
// number from the constant nominal segment duration, (2) refine the
// estimate with a jump followed by a linear sweep, and (3) check that the
// candidate's actual duration covers the desired time, i.e. that the time
// does not fall into a gap.
package locate

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jmylchreest/ytrewind/internal/segment"
)

// Fetcher provides the locator's I/O: header-prefix metadata fetches and
// one full candidate download for the gap check.
type Fetcher interface {
	// Metadata fetches and parses the metadata header of a segment.
	Metadata(ctx context.Context, sequence segment.Sequence) (segment.Metadata, error)
	// Download fetches a full segment and returns its local path.
	Download(ctx context.Context, sequence segment.Sequence) (string, error)
}

// DurationProber measures the actual duration of a downloaded segment.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// SequenceLocatingError wraps any failure during locating.
type SequenceLocatingError struct {
	Cause error
}

func (e *SequenceLocatingError) Error() string {
	return fmt.Sprintf("failed to locate sequence: %v", e.Cause)
}

func (e *SequenceLocatingError) Unwrap() error { return e.Cause }

// cursor is the mutable (sequence, metadata) candidate pair the search
// steps share.
type cursor struct {
	sequence segment.Sequence
	metadata segment.Metadata
}

// Locator finds segments by timestamp over a single representation.
type Locator struct {
	fetch           Fetcher
	probe           DurationProber
	segmentDuration float64
	reference       cursor
	logger          *slog.Logger

	candidate cursor
}

// New creates a locator anchored at the given reference sequence. The
// reference segment's metadata is fetched immediately.
func New(ctx context.Context, fetch Fetcher, probe DurationProber, segmentDuration float64, reference segment.Sequence, logger *slog.Logger) (*Locator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metadata, err := fetch.Metadata(ctx, reference)
	if err != nil {
		return nil, &SequenceLocatingError{Cause: err}
	}

	return &Locator{
		fetch:           fetch,
		probe:           probe,
		segmentDuration: segmentDuration,
		reference:       cursor{sequence: reference, metadata: metadata},
		logger:          logger,
	}, nil
}

// Find returns the sequence number of the segment whose media contains
// desiredTime (seconds since the UNIX epoch). When the time falls into a
// gap, the end flag picks the adjacent side: the segment after the gap
// for interval starts, the last covered segment before it for interval
// ends.
func (l *Locator) Find(ctx context.Context, desiredTime float64, end bool) (segment.Sequence, error) {
	l.logger.Debug("locating segment with the given timestamp", slog.Float64("time", desiredTime))

	// Step 1. Make a trial jump to the desired sequence based on the
	// constant segment duration.
	diffInSeq := int64(math.Ceil((l.reference.metadata.IngestionWalltime - desiredTime) / l.segmentDuration))
	estimate := l.reference.sequence - segment.Sequence(diffInSeq)
	l.logger.Debug("segment initially estimated", slog.Int64("sequence", int64(estimate)))

	// Step 2. Refine the estimated sequence.
	refined, err := l.refine(ctx, estimate, desiredTime, end)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("segment finally refined", slog.Int64("sequence", int64(refined)))
	return refined, nil
}

func (l *Locator) setCandidate(ctx context.Context, sequence segment.Sequence) error {
	metadata, err := l.fetch.Metadata(ctx, sequence)
	if err != nil {
		return &SequenceLocatingError{Cause: err}
	}
	l.candidate = cursor{sequence: sequence, metadata: metadata}
	return nil
}

func (l *Locator) timeDiff(desiredTime float64) float64 {
	return desiredTime - l.candidate.metadata.IngestionWalltime
}

// refine uses a combination of jump and linear search, then checks the
// final candidate against a gap.
func (l *Locator) refine(ctx context.Context, initial segment.Sequence, desiredTime float64, end bool) (segment.Sequence, error) {
	if err := l.setCandidate(ctx, initial); err != nil {
		return 0, err
	}

	diff := l.timeDiff(desiredTime)
	if diff == 0 {
		return l.candidate.sequence, nil
	}

	// The jump length could be negative or positive.
	jump := segment.Sequence(math.Floor(diff / l.segmentDuration))
	l.logger.Debug("initial time difference",
		slog.Float64("diff", diff),
		slog.Int64("jump", int64(jump)),
	)
	if jump != 0 {
		if err := l.setCandidate(ctx, l.candidate.sequence+jump); err != nil {
			return 0, err
		}
	}

	diff = l.timeDiff(desiredTime)
	if diff == 0 {
		return l.candidate.sequence, nil
	}

	// The direction of iteration: to the right (+1) or left (-1).
	direction := segment.Sequence(1)
	if diff < 0 {
		direction = -1
	}

	// Locate a segment where the time difference changes sign.
	sameSigns := true
	for sameSigns && diff != 0 {
		if err := l.setCandidate(ctx, l.candidate.sequence+direction); err != nil {
			return 0, err
		}
		diff = l.timeDiff(desiredTime)
		sameSigns = sign(diff) == direction
		l.logger.Debug("step to next segment",
			slog.Int64("sequence", int64(l.candidate.sequence)),
			slog.Float64("diff", diff),
		)
	}

	if diff == 0 {
		return l.candidate.sequence, nil
	}

	if direction == 1 {
		// Step back so that the candidate's walltime precedes the
		// desired time.
		if err := l.setCandidate(ctx, l.candidate.sequence-1); err != nil {
			return 0, err
		}
	}

	diff = l.timeDiff(desiredTime)

	// Step 3. Check if the desired time falls into a gap following the
	// candidate, by comparing its actual duration with the difference.
	path, err := l.fetch.Download(ctx, l.candidate.sequence)
	if err != nil {
		return 0, &SequenceLocatingError{Cause: err}
	}
	actualDuration, err := l.probe.Duration(ctx, path)
	if err != nil {
		return 0, &SequenceLocatingError{Cause: err}
	}

	l.logger.Debug("candidate gap check",
		slog.Float64("diff", diff),
		slog.Float64("actual_duration", actualDuration),
	)

	if actualDuration < diff {
		l.logger.Debug("input time falls into a gap")
		if !end {
			// Use the next sequence so the interval starts after the
			// gap.
			if err := l.setCandidate(ctx, l.candidate.sequence+1); err != nil {
				return 0, err
			}
		}
	}

	return l.candidate.sequence, nil
}

func sign(v float64) segment.Sequence {
	if v < 0 {
		return -1
	}
	return 1
}
