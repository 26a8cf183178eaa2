// Package cmd implements the CLI commands for ytrewind.
package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ytrewind/internal/cache"
	"github.com/jmylchreest/ytrewind/internal/config"
	"github.com/jmylchreest/ytrewind/internal/excerpt"
	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
	"github.com/jmylchreest/ytrewind/internal/format"
	"github.com/jmylchreest/ytrewind/internal/httpclient"
	"github.com/jmylchreest/ytrewind/internal/info"
	"github.com/jmylchreest/ytrewind/internal/locate"
	"github.com/jmylchreest/ytrewind/internal/mpd"
	"github.com/jmylchreest/ytrewind/internal/observability"
	"github.com/jmylchreest/ytrewind/internal/playback"
	"github.com/jmylchreest/ytrewind/internal/rewind"
	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/internal/store"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
	"github.com/jmylchreest/ytrewind/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:     "ytrewind",
	Short:   "Rewind and download YouTube live stream excerpts",
	Version: version.Short(),
	Long: `ytrewind provides random access to the DVR window of YouTube live
streams: given a moment or interval expressed in wall-clock time, segment
numbers, durations, or relative offsets, it determines the covering
segments, downloads exactly those, and merges them into a single playable
excerpt or a static manifest for external players.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		logger = observability.NewLogger(cfg.Logging)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml in ., /etc/ytrewind or $HOME/.ytrewind)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
}

// ExitCode classifies an error for the process exit status: 0 success,
// 1 user-visible error, 2 unexpected.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	userVisible := []any{
		new(*info.BroadcastNotActiveError),
		new(*info.InfoExtractError),
		new(*format.QuerySyntaxError),
		new(*format.UnknownAttributeError),
		new(*format.AliasResolutionError),
		new(*excerpt.EmptyFormatSpecError),
		new(*excerpt.AmbiguousFormatSpecError),
		new(*segment.MalformedMetadataError),
		new(*store.SegmentDownloadError),
		new(*locate.SequenceLocatingError),
		new(*httpclient.MaxRetryError),
		new(*httpclient.ProtocolError),
		new(*rewind.IntervalError),
		new(*mpd.UnknownRepresentationError),
		new(*ffmpeg.MuxerError),
	}
	for _, target := range userVisible {
		if errors.As(err, target) {
			return 1
		}
	}
	if errors.Is(err, urlutil.ErrBadStreamIdentifier) ||
		errors.Is(err, cache.ErrItemNotFound) ||
		errors.Is(err, playback.ErrBaseURLExpired) {
		return 1
	}
	return 2
}

// formatOptions composes the format-spec evaluation options from the
// configuration.
func formatOptions() format.Options {
	return format.Options{Aliases: cfg.Formats.Aliases}
}
