package locate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/internal/store"
)

// fakeStream serves segment metadata and payload durations from a fixture
// table, standing in for the upstream.
type fakeStream struct {
	segments map[segment.Sequence]fixtureSegment
	fetches  int
}

type fixtureSegment struct {
	walltime float64
	duration float64
}

func (f *fakeStream) Metadata(_ context.Context, sequence segment.Sequence) (segment.Metadata, error) {
	f.fetches++
	fixture, ok := f.segments[sequence]
	if !ok {
		return segment.Metadata{}, &store.SegmentDownloadError{Sequence: sequence, Reason: "404 Not Found", Status: 404}
	}
	return segment.Metadata{
		SequenceNumber:    sequence,
		IngestionWalltime: fixture.walltime,
		TargetDuration:    2.0,
	}, nil
}

func (f *fakeStream) Download(_ context.Context, sequence segment.Sequence) (string, error) {
	if _, ok := f.segments[sequence]; !ok {
		return "", &store.SegmentDownloadError{Sequence: sequence, Reason: "404 Not Found", Status: 404}
	}
	return fmt.Sprintf("%d", sequence), nil
}

// Duration implements DurationProber against the fixture table; Download
// returns the sequence number as the path.
func (f *fakeStream) Duration(_ context.Context, path string) (float64, error) {
	var sequence segment.Sequence
	if _, err := fmt.Sscanf(path, "%d", &sequence); err != nil {
		return 0, err
	}
	return f.segments[sequence].duration, nil
}

// contiguousStream builds a gapless fixture: segments [first, last] with
// exact 2 s spacing starting at base.
func contiguousStream(first, last segment.Sequence, base float64) *fakeStream {
	segments := make(map[segment.Sequence]fixtureSegment)
	for seq := first; seq <= last; seq++ {
		segments[seq] = fixtureSegment{
			walltime: base + 2.0*float64(seq-first),
			duration: 1.999,
		}
	}
	return &fakeStream{segments: segments}
}

func newTestLocator(t *testing.T, stream *fakeStream, reference segment.Sequence) *Locator {
	t.Helper()
	l, err := New(context.Background(), stream, stream, 2.0, reference, nil)
	require.NoError(t, err)
	return l
}

func TestFindExactInSegmentTimestamp(t *testing.T) {
	stream := &fakeStream{segments: map[segment.Sequence]fixtureSegment{
		7959119: {walltime: 1679787232.490, duration: 1.999},
		7959120: {walltime: 1679787234.491, duration: 1.999},
		7959121: {walltime: 1679787236.490, duration: 2.001},
		7959122: {walltime: 1679787238.492, duration: 1.999},
	}}

	for _, end := range []bool{false, true} {
		l := newTestLocator(t, stream, 7959122)
		got, err := l.Find(context.Background(), 1679787235.000, end)
		require.NoError(t, err)
		assert.Equal(t, segment.Sequence(7959120), got, "end=%v", end)
	}
}

// gapStream reproduces a stream that skips after sequence 7958103: the
// segment carries only 0.8 s of media and the stream resumes three
// seconds later at 7958104.
func gapStream() *fakeStream {
	stream := contiguousStream(7958104, 7958122, 1679785204.623644)
	stream.segments[7958102] = fixtureSegment{walltime: 1679785199.451019, duration: 1.998}
	stream.segments[7958103] = fixtureSegment{walltime: 1679785201.449813, duration: 0.8}
	return stream
}

func TestFindGapResolution(t *testing.T) {
	tests := []struct {
		name string
		time float64
		end  bool
		want segment.Sequence
	}{
		{name: "before the gap", time: 1679785201.449813, end: false, want: 7958103},
		{name: "inside the skipping segment", time: 1679785202.000000, end: false, want: 7958103},
		{name: "resumption time as start", time: 1679785204.623643, end: false, want: 7958104},
		{name: "resumption time as end clamps before the gap", time: 1679785204.623643, end: true, want: 7958103},
		{name: "in the gap as start", time: 1679785203.500000, end: false, want: 7958104},
		{name: "in the gap as end", time: 1679785203.500000, end: true, want: 7958103},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLocator(t, gapStream(), 7958122)
			got, err := l.Find(context.Background(), tt.time, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindReferenceOlderThanTarget(t *testing.T) {
	// The reference is behind the desired time, so the ballistic
	// estimate moves forward.
	stream := contiguousStream(100, 160, 1000.0)
	l := newTestLocator(t, stream, 100)

	got, err := l.Find(context.Background(), 1000.0+2.0*50+0.5, false)
	require.NoError(t, err)
	assert.Equal(t, segment.Sequence(150), got)
}

func TestFindExactWalltimeReturnsThatSegment(t *testing.T) {
	stream := contiguousStream(100, 160, 1000.0)
	l := newTestLocator(t, stream, 160)

	got, err := l.Find(context.Background(), 1000.0+2.0*30, false)
	require.NoError(t, err)
	assert.Equal(t, segment.Sequence(130), got)
}

func TestFindBeforeEarliestAvailableSegment(t *testing.T) {
	stream := contiguousStream(100, 160, 1000.0)
	l := newTestLocator(t, stream, 160)

	_, err := l.Find(context.Background(), 500.0, false)

	var locErr *SequenceLocatingError
	require.ErrorAs(t, err, &locErr)
	var downloadErr *store.SegmentDownloadError
	assert.ErrorAs(t, err, &downloadErr)
}

func TestFindIsDeterministic(t *testing.T) {
	stream := gapStream()
	target := 1679785203.5

	var results []segment.Sequence
	for i := 0; i < 3; i++ {
		l := newTestLocator(t, stream, 7958122)
		got, err := l.Find(context.Background(), target, true)
		require.NoError(t, err)
		results = append(results, got)
	}
	assert.Equal(t, []segment.Sequence{7958103, 7958103, 7958103}, results)
}

func TestNewFailsWhenReferenceUnavailable(t *testing.T) {
	stream := contiguousStream(100, 160, 1000.0)

	_, err := New(context.Background(), stream, stream, 2.0, 999, nil)
	var locErr *SequenceLocatingError
	require.ErrorAs(t, err, &locErr)
}
