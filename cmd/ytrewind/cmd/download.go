package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/excerpt"
	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
	"github.com/jmylchreest/ytrewind/internal/info"
	"github.com/jmylchreest/ytrewind/internal/playback"
	"github.com/jmylchreest/ytrewind/internal/progress"
	"github.com/jmylchreest/ytrewind/internal/rewind"
	"github.com/jmylchreest/ytrewind/internal/templating"
)

var downloadFlags = struct {
	start       string
	end         string
	audioFormat string
	videoFormat string
	refItag     string

	outputDir      string
	outputTemplate string

	preview  bool
	noMerge  bool
	noCut    bool
	keepTemp bool

	cache cacheFlags
}{}

var downloadCmd = &cobra.Command{
	Use:   "download STREAM",
	Short: "Download a stream excerpt",
	Long: `Download the excerpt of a live stream covering the given interval.

The interval endpoints accept absolute segment sequences ("7959120"),
absolute dates ("2023-03-25T23:33:55+00:00"), relative durations
("30s", "1h2m"), relative segment counts ("+5"), and the keywords
"earliest" (start), "now" (end) and ".." (end, preview mode).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		return runDownload(cobraCmd, args[0])
	},
}

func init() {
	flags := downloadCmd.Flags()
	flags.StringVarP(&downloadFlags.start, "start", "s", "", "interval start (sequence, date, duration, or 'earliest')")
	flags.StringVarP(&downloadFlags.end, "end", "e", "", "interval end (sequence, date, duration, 'now', or '..')")
	flags.StringVarP(&downloadFlags.audioFormat, "audio-format", "a", "", "audio format spec (empty uses the configured default, 'none' skips audio)")
	flags.StringVarP(&downloadFlags.videoFormat, "video-format", "f", "", "video format spec (empty uses the configured default, 'none' skips video)")
	flags.StringVar(&downloadFlags.refItag, "reference-itag", "", "itag of the representation used for temporal lookups")
	flags.StringVarP(&downloadFlags.outputDir, "output-dir", "o", "", "directory for the merged excerpt")
	flags.StringVar(&downloadFlags.outputTemplate, "output", "", "output filename stem template")
	flags.BoolVarP(&downloadFlags.preview, "preview", "p", false, "preview mode: synthesize the end from the configured preview duration")
	flags.BoolVar(&downloadFlags.noMerge, "no-merge", false, "only download segments, don't merge")
	flags.BoolVar(&downloadFlags.noCut, "no-cut", false, "merge without trimming at the boundaries")
	flags.BoolVar(&downloadFlags.keepTemp, "keep-temp", false, "keep the scratch directory after finishing")
	flags.BoolVar(&downloadFlags.cache.noCache, "no-cache", false, "bypass the stream info cache entirely")
	flags.BoolVar(&downloadFlags.cache.forceUpdateCache, "force-update-cache", false, "refetch the stream info even when cached")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cobraCmd *cobra.Command, stream string) error {
	ctx := cobraCmd.Context()

	startPoint, err := rewind.ParsePoint(valueOr(downloadFlags.start, "earliest"))
	if err != nil {
		return err
	}
	var endPoint rewind.Point
	if downloadFlags.preview {
		endPoint = rewind.OpenPoint{}
	} else if endPoint, err = rewind.ParsePoint(valueOr(downloadFlags.end, "now")); err != nil {
		return err
	}

	p, err := openPlayback(ctx, stream, downloadFlags.cache)
	if err != nil {
		return err
	}
	keepTemp := downloadFlags.keepTemp || cfg.Output.KeepTemp
	if !keepTemp {
		defer p.Cleanup()
	}
	printSummary(p)

	audio, video, err := resolveDownloadFormats(p.Catalog())
	if err != nil {
		return err
	}

	prober := ffmpeg.NewProber(cfg.FFmpeg.ProbePath)
	interval, err := p.LocateInterval(ctx, startPoint, endPoint, playback.LocateOptions{
		RefItag:         downloadFlags.refItag,
		DVRWindow:       time.Duration(cfg.Rewind.DVRWindow),
		PreviewDuration: previewDuration(),
		Prober:          prober,
	})
	if err != nil {
		return err
	}
	logger.Info("rewind interval located",
		"start", int64(interval.Start), "end", int64(interval.End))

	st, err := p.Store()
	if err != nil {
		return err
	}
	tempDir, err := p.TempDir()
	if err != nil {
		return err
	}

	videoInfo, err := p.VideoInfo()
	if err != nil {
		return err
	}

	muxer := ffmpeg.NewMuxer(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, tempDir)
	producer := excerpt.NewProducer(st, muxer, prober, progress.NewConsoleSink(os.Stderr), logger)

	// The output stem is rendered only once the boundary segments are
	// downloaded and measured: non-date endpoints fall back to the
	// boundary segments' actual ingestion dates, so repeated downloads
	// of different intervals never collide on the same filename.
	requestedStart, requestedEnd := requestedDates(startPoint, endPoint)
	stemTemplate := valueOr(downloadFlags.outputTemplate, cfg.Output.Template)
	stemFunc := func(actualStart, actualEnd time.Time) (string, error) {
		templateContext := stemContext(p.VideoID(), videoInfo, requestedStart, requestedEnd, actualStart, actualEnd)
		return templating.Render(stemTemplate, templateContext)
	}

	result := producer.Produce(ctx, excerpt.Request{
		Interval:       interval,
		Audio:          audio,
		Video:          video,
		RequestedStart: requestedStart,
		RequestedEnd:   requestedEnd,
		OutputDir:      outputDirectory(),
		OutputStemFunc: stemFunc,
		NoMerge:        downloadFlags.noMerge,
		NoCut:          downloadFlags.noCut,
		Cleanup:        !keepTemp,
	})
	if result.Err != nil {
		if len(result.AudioPaths)+len(result.VideoPaths) > 0 {
			fmt.Fprintf(os.Stderr, "downloaded %d audio and %d video segments before failing\n",
				len(result.AudioPaths), len(result.VideoPaths))
		}
		return result.Err
	}

	if downloadFlags.noMerge {
		fmt.Printf("Downloaded %d audio and %d video segments into %s\n",
			len(result.AudioPaths), len(result.VideoPaths), tempDir)
		return nil
	}
	fmt.Printf("Excerpt written to %s\n", result.MergedPath)
	return nil
}

// resolveDownloadFormats maps the format flags to representations. The
// literal "none" skips a stream type; both cannot be skipped.
func resolveDownloadFormats(c *catalog.Catalog) (audio, video *catalog.Representation, err error) {
	audioSpec := valueOr(downloadFlags.audioFormat, cfg.Formats.Audio)
	videoSpec := valueOr(downloadFlags.videoFormat, cfg.Formats.Video)

	if audioSpec != "none" && audioSpec != "" {
		representation, err := excerpt.ResolveSpec(c, audioSpec, "audio", formatOptions())
		if err != nil {
			return nil, nil, err
		}
		audio = &representation
	}
	if videoSpec != "none" && videoSpec != "" {
		representation, err := excerpt.ResolveSpec(c, videoSpec, "video", formatOptions())
		if err != nil {
			return nil, nil, err
		}
		video = &representation
	}
	if audio == nil && video == nil {
		return nil, nil, fmt.Errorf("both audio and video formats are disabled")
	}
	return audio, video, nil
}

// requestedDates extracts the caller's input dates for boundary
// trimming; non-temporal endpoints leave whole-segment boundaries.
func requestedDates(start, end rewind.Point) (time.Time, time.Time) {
	var requestedStart, requestedEnd time.Time
	if p, ok := start.(rewind.TimePoint); ok {
		requestedStart = p.Time
	}
	if p, ok := end.(rewind.TimePoint); ok {
		requestedEnd = p.Time
	}
	return requestedStart, requestedEnd
}

// stemContext builds the output template context. Endpoints that were
// not given as dates take the boundary segments' actual ingestion dates
// as their input dates.
func stemContext(videoID string, videoInfo info.VideoInfo, requestedStart, requestedEnd, actualStart, actualEnd time.Time) templating.Context {
	inputStart := requestedStart
	if inputStart.IsZero() {
		inputStart = actualStart
	}
	inputEnd := requestedEnd
	if inputEnd.IsZero() {
		inputEnd = actualEnd
	}
	return templating.Context{
		ID:          videoID,
		Title:       videoInfo.Title,
		Author:      videoInfo.Author,
		InputStart:  inputStart,
		InputEnd:    inputEnd,
		ActualStart: actualStart,
		ActualEnd:   actualEnd,
	}
}

func outputDirectory() string {
	if downloadFlags.outputDir != "" {
		return downloadFlags.outputDir
	}
	return cfg.Output.Directory
}

func previewDuration() time.Duration {
	if !downloadFlags.preview {
		return 0
	}
	return time.Duration(cfg.Rewind.PreviewDuration)
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
