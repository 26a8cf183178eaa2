package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/ytrewind/internal/cache"
	"github.com/jmylchreest/ytrewind/internal/httpclient"
	"github.com/jmylchreest/ytrewind/internal/playback"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
)

// cacheFlags are shared by commands that open a playback.
type cacheFlags struct {
	noCache          bool
	forceUpdateCache bool
}

// playbackOptions composes the playback options from the configuration.
func playbackOptions() playback.Options {
	var session *httpclient.Client
	if cfg != nil {
		session = httpclient.New(httpclient.Config{
			Timeout:             cfg.HTTP.RequestTimeout,
			RetryAttempts:       cfg.HTTP.RetryAttempts,
			Logger:              logger,
			EnableDecompression: true,
		})
	}
	return playback.Options{
		Session:  session,
		CacheDir: cacheDirectory(),
		Logger:   logger,
	}
}

func cacheDirectory() string {
	if !cfg.Cache.Enabled {
		return ""
	}
	if cfg.Cache.Directory != "" {
		return cfg.Cache.Directory
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "ytrewind")
}

// openPlayback creates a playback for the stream identifier, preferring
// the unexpired disk cache and falling back to a network fetch.
func openPlayback(ctx context.Context, streamURLOrID string, flags cacheFlags) (*playback.Playback, error) {
	videoURL, err := urlutil.NormalizeVideoURL(streamURLOrID)
	if err != nil {
		return nil, err
	}

	opts := playbackOptions()
	opts.WriteToCache = cfg.Cache.Enabled && !flags.noCache

	if opts.CacheDir != "" {
		if err := cache.RemoveExpired(opts.CacheDir, time.Now()); err != nil {
			logger.Warn("failed to garbage-collect the cache", "error", err)
		}
	}

	if opts.CacheDir != "" && !flags.noCache && !flags.forceUpdateCache {
		p, err := playback.FromCache(videoURL, opts)
		if err == nil {
			logger.Debug("starting playback from cached stream info")
			return p, nil
		}
		if !errors.Is(err, cache.ErrItemNotFound) {
			return nil, err
		}
	}

	logger.Debug("fetching stream info from the upstream")
	return playback.FromURL(ctx, videoURL, opts)
}

// printSummary reports the essential info of an opened playback.
func printSummary(p *playback.Playback) {
	videoInfo, err := p.VideoInfo()
	if err != nil {
		return
	}
	fmt.Printf("Stream: %s\n", videoInfo.Title)
	fmt.Printf("Author: %s\n", videoInfo.Author)
	fmt.Printf("URL:    %s\n", videoInfo.URL)
}

// streamURLFromManifest recovers the canonical watch URL from a
// manifest's base URL.
func streamURLFromManifest(baseURL string) string {
	videoURL, err := urlutil.VideoURLFromBaseURL(baseURL)
	if err != nil {
		return ""
	}
	return videoURL
}
