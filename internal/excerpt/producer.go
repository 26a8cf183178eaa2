package excerpt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
	"github.com/jmylchreest/ytrewind/internal/progress"
	"github.com/jmylchreest/ytrewind/internal/rewind"
	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/internal/store"
)

// segmentsSubdir is where excerpt segments land inside the scratch
// directory.
const segmentsSubdir = "segments"

// Muxer executes mux plans. Implemented by the ffmpeg package; faked in
// tests.
type Muxer interface {
	Execute(ctx context.Context, plan ffmpeg.MuxPlan) error
}

// DurationProber measures actual media durations; used to compute the
// actual end date of the excerpt.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Request describes one excerpt production.
type Request struct {
	Interval rewind.Interval

	// Audio and Video are the resolved representations; either may be
	// nil for a single-stream excerpt, but not both.
	Audio *catalog.Representation
	Video *catalog.Representation

	// RequestedStart and RequestedEnd are the caller's input dates. When
	// set, the merged excerpt is trimmed to them at the boundaries. Zero
	// values mean whole-segment boundaries.
	RequestedStart time.Time
	RequestedEnd   time.Time

	// OutputDir and OutputStem compose the merged artifact path. An
	// empty OutputDir means the current working directory.
	OutputDir  string
	OutputStem string

	// OutputStemFunc, when set, supersedes OutputStem. It runs after the
	// boundary segments are downloaded and measured, so callers can
	// derive date-differentiated filenames even when the interval was
	// requested by sequence or relative endpoints.
	OutputStemFunc func(actualStart, actualEnd time.Time) (string, error)

	// NoMerge skips muxing and leaves the downloaded segments in place.
	NoMerge bool
	// NoCut merges by concatenation only, without boundary trims.
	NoCut bool
	// Cleanup removes mux intermediates regardless of success.
	Cleanup bool
}

// Result bundles the excerpt outcome. Partial progress is never
// discarded: downloaded segment paths are present even when merging
// failed.
type Result struct {
	// MergedPath is the merged artifact, empty with NoMerge or on
	// failure.
	MergedPath string
	// AudioPaths and VideoPaths list the downloaded segment files in
	// sequence order.
	AudioPaths []string
	VideoPaths []string
	// ActualStart and ActualEnd are the excerpt's actual boundary dates
	// measured from the boundary segments.
	ActualStart time.Time
	ActualEnd   time.Time
	// Err is the terminal error, if any.
	Err error
}

// Producer coordinates the store, the session and the muxer to
// materialize excerpts.
type Producer struct {
	store  *store.Store
	muxer  Muxer
	prober DurationProber
	sink   progress.Sink
	logger *slog.Logger
}

// NewProducer creates an excerpt producer.
func NewProducer(st *store.Store, muxer Muxer, prober DurationProber, sink progress.Sink, logger *slog.Logger) *Producer {
	if sink == nil {
		sink = progress.NilSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{store: st, muxer: muxer, prober: prober, sink: sink, logger: logger}
}

// Produce downloads the interval and, unless NoMerge is set, merges and
// trims it into a single artifact. Errors after the download phase are
// aggregated into the result rather than discarding progress.
func (p *Producer) Produce(ctx context.Context, req Request) Result {
	var result Result

	if req.Audio == nil && req.Video == nil {
		result.Err = fmt.Errorf("audio or/and video representations should be provided")
		return result
	}

	operationID := ulid.Make().String()
	logger := p.logger.With(slog.String("operation", operationID))
	logger.Debug("producing excerpt",
		slog.Int64("start", int64(req.Interval.Start)),
		slog.Int64("end", int64(req.Interval.End)),
	)

	total := int(req.Interval.Len())
	var audioTask, videoTask progress.Reporter
	if req.Audio != nil {
		audioTask = p.sink.StartTask("audio", total)
	}
	if req.Video != nil {
		videoTask = p.sink.StartTask("video", total)
	}

	// The per-sequence loop is ordered so progress stays monotone; the
	// audio and video downloads of one sequence run in parallel.
	for sequence := req.Interval.Start; sequence <= req.Interval.End; sequence++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		var audioPath, videoPath string
		g, groupCtx := errgroup.WithContext(ctx)
		if req.Audio != nil {
			g.Go(func() error {
				var err error
				audioPath, err = p.fetchSegment(groupCtx, sequence, req.Audio.BaseURL)
				return err
			})
		}
		if req.Video != nil {
			g.Go(func() error {
				var err error
				videoPath, err = p.fetchSegment(groupCtx, sequence, req.Video.BaseURL)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			result.Err = err
			return result
		}

		if audioPath != "" {
			result.AudioPaths = append(result.AudioPaths, audioPath)
			audioTask.Advance(1)
		}
		if videoPath != "" {
			result.VideoPaths = append(result.VideoPaths, videoPath)
			videoTask.Advance(1)
		}
	}
	if audioTask != nil {
		audioTask.Done()
	}
	if videoTask != nil {
		videoTask.Done()
	}

	if err := p.measureActualDates(ctx, &result); err != nil {
		result.Err = err
		return result
	}

	if req.NoMerge {
		return result
	}

	cutStartMS, cutEndMS := cutOffsets(req, result)

	stem := req.OutputStem
	if req.OutputStemFunc != nil {
		var err error
		if stem, err = req.OutputStemFunc(result.ActualStart, result.ActualEnd); err != nil {
			result.Err = err
			return result
		}
	}

	ext := OutputExtension(result.AudioPaths, result.VideoPaths)
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, stem+ext)

	plan := BuildPlan(result.AudioPaths, result.VideoPaths, outputPath, p.store.Dir(), cutStartMS, cutEndMS)

	err := p.muxer.Execute(ctx, plan)
	if req.Cleanup {
		for _, path := range plan.Intermediates() {
			os.Remove(path)
		}
	}
	if err != nil {
		result.Err = err
		return result
	}

	result.MergedPath = outputPath
	return result
}

func (p *Producer) fetchSegment(ctx context.Context, sequence segment.Sequence, baseURL string) (string, error) {
	return p.store.Fetch(ctx, sequence, baseURL, store.FetchOptions{Subdir: segmentsSubdir})
}

// measureActualDates reads the boundary segments to establish the actual
// date interval of the excerpt.
func (p *Producer) measureActualDates(ctx context.Context, result *Result) error {
	paths := result.VideoPaths
	if len(paths) == 0 {
		paths = result.AudioPaths
	}
	if len(paths) == 0 {
		return nil
	}

	firstSegment, err := segment.FromFile(paths[0])
	if err != nil {
		return err
	}
	lastSegment, err := segment.FromFile(paths[len(paths)-1])
	if err != nil {
		return err
	}
	lastDuration, err := p.prober.Duration(ctx, paths[len(paths)-1])
	if err != nil {
		return err
	}

	result.ActualStart = firstSegment.IngestionStart()
	result.ActualEnd = lastSegment.IngestionEnd(lastDuration)
	return nil
}

// cutOffsets computes the boundary trims in milliseconds:
// cut_start = max(0, requested_start - actual_start) and
// cut_end = max(0, actual_end - requested_end).
func cutOffsets(req Request, result Result) (int64, int64) {
	if req.NoCut {
		return 0, 0
	}

	var cutStartMS, cutEndMS int64
	if !req.RequestedStart.IsZero() && !result.ActualStart.IsZero() {
		if d := req.RequestedStart.Sub(result.ActualStart); d > 0 {
			cutStartMS = d.Milliseconds()
		}
	}
	if !req.RequestedEnd.IsZero() && !result.ActualEnd.IsZero() {
		if d := result.ActualEnd.Sub(req.RequestedEnd); d > 0 {
			cutEndMS = d.Milliseconds()
		}
	}
	return cutStartMS, cutEndMS
}
