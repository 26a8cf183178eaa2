package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/locate"
	"github.com/jmylchreest/ytrewind/internal/rewind"
	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/internal/store"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
)

// LocateOptions configures interval resolution.
type LocateOptions struct {
	// RefItag selects the representation temporal lookups run against.
	// Empty means a video representation is preferred, falling back to
	// any.
	RefItag string
	// DVRWindow is how far back the upstream retains segments; it backs
	// the "earliest" keyword.
	DVRWindow time.Duration
	// PreviewDuration backs the ".." open endpoint.
	PreviewDuration time.Duration
	// Prober measures actual segment durations for the locator's gap
	// check.
	Prober locate.DurationProber
}

// ReferenceRepresentation picks the representation used for temporal
// lookups: the explicit itag when given, otherwise a video
// representation, otherwise any.
func (p *Playback) ReferenceRepresentation(itag string) (catalog.Representation, error) {
	if itag != "" {
		representation, ok := p.catalog.GetByItag(itag)
		if !ok {
			return catalog.Representation{}, fmt.Errorf("no representation with itag %q", itag)
		}
		return representation, nil
	}

	all := p.catalog.All()
	if len(all) == 0 {
		return catalog.Representation{}, fmt.Errorf("catalog is empty, fetch essential info first")
	}
	for _, representation := range all {
		if representation.IsVideo() {
			return representation, nil
		}
	}
	return all[0], nil
}

// LocateInterval resolves an endpoint pair into a concrete sequence
// range over the reference representation.
func (p *Playback) LocateInterval(ctx context.Context, start, end rewind.Point, opts LocateOptions) (rewind.Interval, error) {
	reference, err := p.ReferenceRepresentation(opts.RefItag)
	if err != nil {
		return rewind.Interval{}, err
	}

	view, err := p.streamView(reference, opts.Prober)
	if err != nil {
		return rewind.Interval{}, err
	}

	resolver := rewind.NewResolver(view, view.segmentDuration, opts.DVRWindow, opts.PreviewDuration, p.logger)
	return resolver.Resolve(ctx, start, end)
}

// streamView builds the resolver's view over one representation.
func (p *Playback) streamView(representation catalog.Representation, prober locate.DurationProber) (*streamView, error) {
	segmentDuration, err := urlutil.SegmentDuration(representation.BaseURL)
	if err != nil {
		return nil, err
	}
	segmentStore, err := p.Store()
	if err != nil {
		return nil, err
	}
	return &streamView{
		playback:        p,
		baseURL:         representation.BaseURL,
		segmentDuration: segmentDuration,
		fetcher:         &segmentFetcher{store: segmentStore, baseURL: representation.BaseURL},
		prober:          prober,
	}, nil
}

// streamView implements rewind.Stream over one representation.
type streamView struct {
	playback        *Playback
	baseURL         string
	segmentDuration float64
	fetcher         *segmentFetcher
	prober          locate.DurationProber

	locator *locate.Locator
}

func (v *streamView) Head(ctx context.Context) (segment.Sequence, error) {
	head, err := v.playback.session.HeadSequence(ctx, v.baseURL)
	if err != nil {
		return 0, err
	}
	return segment.Sequence(head), nil
}

func (v *streamView) Locator(ctx context.Context) (*locate.Locator, error) {
	if v.locator != nil {
		return v.locator, nil
	}

	reference, err := v.Head(ctx)
	if err != nil {
		return nil, err
	}
	locator, err := locate.New(ctx, v.fetcher, v.prober, v.segmentDuration, reference, v.playback.logger)
	if err != nil {
		return nil, err
	}
	v.locator = locator
	return locator, nil
}

func (v *streamView) AnchorDates(ctx context.Context, sequence segment.Sequence) (time.Time, time.Time, error) {
	path, err := v.fetcher.Download(ctx, sequence)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	anchor, err := segment.FromFile(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	actualDuration, err := v.prober.Duration(ctx, path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return anchor.IngestionStart(), anchor.IngestionEnd(actualDuration), nil
}

// segmentFetcher implements locate.Fetcher over the segment store.
type segmentFetcher struct {
	store   *store.Store
	baseURL string
}

// Metadata fetches the header prefix of a segment and parses it.
func (f *segmentFetcher) Metadata(ctx context.Context, sequence segment.Sequence) (segment.Metadata, error) {
	prefix, err := f.store.FetchBuffer(ctx, sequence, f.baseURL, segment.HeaderPrefixSize)
	if err != nil {
		return segment.Metadata{}, err
	}
	return segment.ParseMetadata(prefix)
}

// Download fetches a full segment into the scratch directory.
func (f *segmentFetcher) Download(ctx context.Context, sequence segment.Sequence) (string, error) {
	return f.store.Fetch(ctx, sequence, f.baseURL, store.FetchOptions{})
}
