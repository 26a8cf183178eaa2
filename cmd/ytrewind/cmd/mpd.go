package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
	"github.com/jmylchreest/ytrewind/internal/mpd"
	"github.com/jmylchreest/ytrewind/internal/playback"
	"github.com/jmylchreest/ytrewind/internal/rewind"
)

var mpdCmd = &cobra.Command{
	Use:   "mpd",
	Short: "Compose and refresh static manifests for external players",
}

var mpdComposeFlags = struct {
	start   string
	end     string
	refItag string
	output  string
	cache   cacheFlags
}{}

var mpdComposeCmd = &cobra.Command{
	Use:   "compose STREAM",
	Short: "Compose a static manifest covering a rewind interval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		ctx := cobraCmd.Context()

		startPoint, err := rewind.ParsePoint(valueOr(mpdComposeFlags.start, "earliest"))
		if err != nil {
			return err
		}
		endPoint, err := rewind.ParsePoint(valueOr(mpdComposeFlags.end, "now"))
		if err != nil {
			return err
		}

		p, err := openPlayback(ctx, args[0], mpdComposeFlags.cache)
		if err != nil {
			return err
		}
		defer p.Cleanup()

		interval, err := p.LocateInterval(ctx, startPoint, endPoint, playback.LocateOptions{
			RefItag:   mpdComposeFlags.refItag,
			DVRWindow: time.Duration(cfg.Rewind.DVRWindow),
			Prober:    ffmpeg.NewProber(cfg.FFmpeg.ProbePath),
		})
		if err != nil {
			return err
		}

		videoInfo, err := p.VideoInfo()
		if err != nil {
			return err
		}
		manifest, err := mpd.Compose(videoInfo, interval, p.Catalog())
		if err != nil {
			return err
		}

		output := mpdComposeFlags.output
		if output == "" {
			output = p.VideoID() + ".mpd"
		}
		if err := os.WriteFile(output, []byte(manifest), 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
		fmt.Printf("Manifest written to %s\n", output)
		return nil
	},
}

var mpdRefreshCmd = &cobra.Command{
	Use:   "refresh MANIFEST",
	Short: "Substitute fresh base URLs into an existing manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		ctx := cobraCmd.Context()
		manifestPath := args[0]

		content, err := os.ReadFile(manifestPath)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}

		representations, err := mpd.ExtractRepresentations(string(content))
		if err != nil {
			return err
		}
		if len(representations) == 0 {
			return fmt.Errorf("manifest contains no representations")
		}

		p, err := openPlayback(ctx, streamURLFromManifest(representations[0].BaseURL), cacheFlags{forceUpdateCache: true})
		if err != nil {
			return err
		}
		defer p.Cleanup()

		refreshed, err := mpd.Refresh(string(content), p.Catalog())
		if err != nil {
			return err
		}
		if err := os.WriteFile(manifestPath, []byte(refreshed), 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
		fmt.Printf("Manifest %s refreshed\n", manifestPath)
		return nil
	},
}

func init() {
	composeFlags := mpdComposeCmd.Flags()
	composeFlags.StringVarP(&mpdComposeFlags.start, "start", "s", "", "interval start")
	composeFlags.StringVarP(&mpdComposeFlags.end, "end", "e", "", "interval end")
	composeFlags.StringVar(&mpdComposeFlags.refItag, "reference-itag", "", "itag used for temporal lookups")
	composeFlags.StringVarP(&mpdComposeFlags.output, "output", "o", "", "manifest output path (default {video-id}.mpd)")
	composeFlags.BoolVar(&mpdComposeFlags.cache.noCache, "no-cache", false, "bypass the stream info cache entirely")
	composeFlags.BoolVar(&mpdComposeFlags.cache.forceUpdateCache, "force-update-cache", false, "refetch the stream info even when cached")

	mpdCmd.AddCommand(mpdComposeCmd)
	mpdCmd.AddCommand(mpdRefreshCmd)
	rootCmd.AddCommand(mpdCmd)
}
