// Package playback owns the lifecycle of one rewind session: the
// upstream HTTP session, the representation catalog with its refresh
// hook, the cached video info, and the scratch directory segments are
// downloaded into.
package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/ytrewind/internal/cache"
	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/httpclient"
	"github.com/jmylchreest/ytrewind/internal/info"
	"github.com/jmylchreest/ytrewind/internal/mpd"
	"github.com/jmylchreest/ytrewind/internal/store"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
)

// ErrBaseURLExpired is returned when stream info carries already-expired
// base URLs, e.g. when starting from a stale manifest file.
var ErrBaseURLExpired = errors.New("stream base URLs have expired")

// Options configures a playback session.
type Options struct {
	// Session is the upstream HTTP session. A default one is created
	// when nil; either way the playback installs its refresh policy on
	// it.
	Session *httpclient.Client
	// Fetcher overrides the video-info fetcher. Defaults to the
	// watch-page scrape fetcher.
	Fetcher InfoFetcher
	// CacheDir enables the on-disk stream-info cache when non-empty.
	CacheDir string
	// WriteToCache persists fetched stream info into CacheDir.
	WriteToCache bool
	// TempRoot is the parent of the session scratch directory. Empty
	// means the system temp directory.
	TempRoot string
	// Logger is the structured logger.
	Logger *slog.Logger
}

// Playback is one rewind session over a live stream.
type Playback struct {
	videoURL string
	videoID  string

	session *httpclient.Client
	fetcher InfoFetcher
	logger  *slog.Logger

	catalog   *catalog.Catalog
	videoInfo *info.VideoInfo

	cacheDir     string
	writeToCache bool

	tempRoot string
	tempDir  string

	segmentStore *store.Store
}

// New creates a playback session for a canonical video URL without
// fetching anything yet.
func New(videoURL string, opts Options) (*Playback, error) {
	videoID, err := urlutil.VideoIDFromURL(videoURL)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	session := opts.Session
	if session == nil {
		session = httpclient.NewWithDefaults()
	}

	p := &Playback{
		videoURL:     videoURL,
		videoID:      videoID,
		session:      session,
		fetcher:      opts.Fetcher,
		logger:       logger,
		catalog:      catalog.New(),
		cacheDir:     opts.CacheDir,
		writeToCache: opts.WriteToCache,
		tempRoot:     opts.TempRoot,
	}
	if p.fetcher == nil {
		p.fetcher = NewScrapeFetcher(videoURL, session)
	}

	// The session recovers expired segment URLs by calling back into
	// this playback's refresh logic.
	session.SetRefreshPolicy(&refreshPolicy{playback: p})

	return p, nil
}

// FromURL creates a playback and immediately fetches the essential
// stream info.
func FromURL(ctx context.Context, videoURL string, opts Options) (*Playback, error) {
	p, err := New(videoURL, opts)
	if err != nil {
		return nil, err
	}
	if err := p.FetchEssential(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// FromManifest creates a playback from a saved manifest file. Manifests
// whose base URLs have expired are rejected with ErrBaseURLExpired.
func FromManifest(ctx context.Context, manifestPath string, opts Options) (*Playback, error) {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	representations, err := mpd.ExtractRepresentations(string(content))
	if err != nil {
		return nil, err
	}
	if len(representations) == 0 {
		return nil, fmt.Errorf("manifest contains no representations")
	}

	someBaseURL := representations[0].BaseURL
	expired, err := urlutil.IsExpired(someBaseURL, time.Now())
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrBaseURLExpired
	}

	videoURL, err := urlutil.VideoURLFromBaseURL(someBaseURL)
	if err != nil {
		return nil, err
	}

	p, err := New(videoURL, opts)
	if err != nil {
		return nil, err
	}
	p.catalog.Replace(representations)

	if _, err := p.fetchVideoInfo(ctx); err != nil {
		return nil, err
	}
	p.writeToCacheIfNeeded()
	return p, nil
}

// FromCache creates a playback from the unexpired on-disk cache.
// cache.ErrItemNotFound is returned when nothing usable is cached.
func FromCache(videoURL string, opts Options) (*Playback, error) {
	p, err := New(videoURL, opts)
	if err != nil {
		return nil, err
	}
	if p.cacheDir == "" {
		return nil, cache.ErrItemNotFound
	}

	item, err := cache.Read(p.cacheDir, p.videoID, time.Now())
	if err != nil {
		return nil, err
	}

	var videoInfo info.VideoInfo
	if err := json.Unmarshal(item.Info, &videoInfo); err != nil {
		return nil, fmt.Errorf("decoding cached video info: %w", err)
	}
	var representations []catalog.Representation
	if err := json.Unmarshal(item.Streams, &representations); err != nil {
		return nil, fmt.Errorf("decoding cached streams: %w", err)
	}

	p.videoInfo = &videoInfo
	p.catalog.Replace(representations)
	p.writeToCache = true
	return p, nil
}

// VideoURL returns the canonical watch URL.
func (p *Playback) VideoURL() string { return p.videoURL }

// VideoID returns the 11-character video ID.
func (p *Playback) VideoID() string { return p.videoID }

// Session returns the upstream HTTP session.
func (p *Playback) Session() *httpclient.Client { return p.session }

// Catalog returns the representation catalog.
func (p *Playback) Catalog() *catalog.Catalog { return p.catalog }

// VideoInfo returns the fetched video info.
func (p *Playback) VideoInfo() (info.VideoInfo, error) {
	if p.videoInfo == nil {
		return info.VideoInfo{}, fmt.Errorf("video info is not set, fetch essential info first")
	}
	return *p.videoInfo, nil
}

// FetchEssential fetches the video info and representations and
// publishes them on the session. The refresh callback reuses this, so it
// must stay idempotent.
func (p *Playback) FetchEssential(ctx context.Context) error {
	if _, err := p.fetchVideoInfo(ctx); err != nil {
		return err
	}

	representations, err := p.fetcher.FetchRepresentations(ctx)
	if err != nil {
		return err
	}
	p.catalog.Replace(representations)
	p.writeToCacheIfNeeded()
	return nil
}

func (p *Playback) fetchVideoInfo(ctx context.Context) (info.VideoInfo, error) {
	videoInfo, err := p.fetcher.FetchVideoInfo(ctx)
	if err != nil {
		return info.VideoInfo{}, err
	}
	p.videoInfo = &videoInfo
	return videoInfo, nil
}

func (p *Playback) writeToCacheIfNeeded() {
	if !p.writeToCache || p.cacheDir == "" || p.videoInfo == nil || p.catalog.Len() == 0 {
		return
	}

	someBaseURL := p.catalog.All()[0].BaseURL
	expiry, err := urlutil.Expiry(someBaseURL)
	if err != nil {
		p.logger.Warn("skipping cache write", slog.String("error", err.Error()))
		return
	}

	infoJSON, err := json.Marshal(p.videoInfo)
	if err != nil {
		return
	}
	streamsJSON, err := json.Marshal(p.catalog.All())
	if err != nil {
		return
	}

	item := &cache.Item{Info: infoJSON, Streams: streamsJSON}
	if err := cache.Write(p.cacheDir, p.videoID, expiry.Unix(), item); err != nil {
		p.logger.Warn("failed to write cache item", slog.String("error", err.Error()))
	}
}

// TempDir returns the session scratch directory, creating it lazily.
func (p *Playback) TempDir() (string, error) {
	if p.tempDir != "" {
		return p.tempDir, nil
	}

	root := p.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "ytrewind-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	p.tempDir = dir
	p.logger.Debug("run temp directory set", slog.String("path", dir))
	return dir, nil
}

// Store returns the session's segment store over the scratch directory.
func (p *Playback) Store() (*store.Store, error) {
	if p.segmentStore != nil {
		return p.segmentStore, nil
	}
	dir, err := p.TempDir()
	if err != nil {
		return nil, err
	}
	p.segmentStore = store.New(dir, p.session, p.logger)
	return p.segmentStore, nil
}

// Cleanup removes the scratch directory and everything in it.
func (p *Playback) Cleanup() error {
	if p.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(p.tempDir)
	p.tempDir = ""
	p.segmentStore = nil
	return err
}

// refreshPolicy adapts the playback to the session's retry hook. The
// indirection keeps the session oblivious to the playback lifecycle.
type refreshPolicy struct {
	playback *Playback
}

func (r *refreshPolicy) Refresh(ctx context.Context) error {
	return r.playback.FetchEssential(ctx)
}

func (r *refreshPolicy) ItagByURLPrefix(url string) (string, string, bool) {
	itag, ok := r.playback.catalog.ItagByURLPrefix(url)
	if !ok {
		return "", "", false
	}
	representation, ok := r.playback.catalog.GetByItag(itag)
	if !ok {
		return "", "", false
	}
	return itag, representation.BaseURL, true
}

func (r *refreshPolicy) BaseURLByItag(itag string) (string, bool) {
	representation, ok := r.playback.catalog.GetByItag(itag)
	if !ok {
		return "", false
	}
	return representation.BaseURL, true
}
