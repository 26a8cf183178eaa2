package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/httpclient"
	"github.com/jmylchreest/ytrewind/internal/info"
	"github.com/jmylchreest/ytrewind/internal/mpd"
)

// InfoFetcher fetches a stream's video info and representations.
type InfoFetcher interface {
	FetchVideoInfo(ctx context.Context) (info.VideoInfo, error)
	FetchRepresentations(ctx context.Context) ([]catalog.Representation, error)
}

// ScrapeFetcher extracts video info from the stream's watch page and the
// representations from its DASH manifest.
type ScrapeFetcher struct {
	videoURL string
	session  *httpclient.Client

	videoInfo *info.VideoInfo
}

// NewScrapeFetcher creates a fetcher for the given canonical watch URL.
func NewScrapeFetcher(videoURL string, session *httpclient.Client) *ScrapeFetcher {
	return &ScrapeFetcher{videoURL: videoURL, session: session}
}

// FetchVideoInfo downloads the watch page and extracts the essential
// info. Streams that are not live fail with BroadcastNotActiveError.
func (f *ScrapeFetcher) FetchVideoInfo(ctx context.Context) (info.VideoInfo, error) {
	page, err := f.get(ctx, f.videoURL)
	if err != nil {
		return info.VideoInfo{}, fmt.Errorf("fetching watch page: %w", err)
	}

	videoInfo, err := info.ExtractVideoInfo(f.videoURL, page)
	if err != nil {
		return info.VideoInfo{}, err
	}
	if videoInfo.Status != info.StatusActive {
		return info.VideoInfo{}, &info.BroadcastNotActiveError{Status: videoInfo.Status}
	}

	f.videoInfo = &videoInfo
	return videoInfo, nil
}

// FetchRepresentations downloads the DASH manifest and extracts the
// representations.
func (f *ScrapeFetcher) FetchRepresentations(ctx context.Context) ([]catalog.Representation, error) {
	if f.videoInfo == nil {
		if _, err := f.FetchVideoInfo(ctx); err != nil {
			return nil, err
		}
	}

	manifest, err := f.get(ctx, f.videoInfo.DashManifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	return mpd.ExtractRepresentations(manifest)
}

func (f *ScrapeFetcher) get(ctx context.Context, url string) (string, error) {
	resp, err := f.session.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s for %s", resp.Status, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
