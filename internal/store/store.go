// Package store downloads media segments into a scratch directory and
// composes their canonical on-disk filenames.
//
// Segment files are content-addressed by the canonical naming convention
// {sequence}.i{itag}.{ext}, so concurrent fetches for the same sequence
// converge on the same file. Writes go to a temporary file first and are
// renamed into place.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jmylchreest/ytrewind/internal/httpclient"
	"github.com/jmylchreest/ytrewind/internal/segment"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
)

// SegmentDownloadError indicates a segment request failed.
type SegmentDownloadError struct {
	Sequence segment.Sequence
	Reason   string
	Status   int
}

func (e *SegmentDownloadError) Error() string {
	return fmt.Sprintf("failed to download segment %d: %s", e.Sequence, e.Reason)
}

// FetchOptions customizes a segment fetch.
type FetchOptions struct {
	// Size, when positive, requests bytes 0 through Size (inclusive) via a
	// Range header. Servers are free to ignore it and return the full body.
	Size int64
	// Force re-downloads even when the canonical file already exists.
	Force bool
	// Filename overrides the canonical filename.
	Filename string
	// Subdir places the file in a subdirectory of the scratch directory.
	Subdir string
}

// Store fetches segments over a session into a scratch directory.
type Store struct {
	dir    string
	client *httpclient.Client
	logger *slog.Logger
}

// New creates a segment store rooted at dir.
func New(dir string, client *httpclient.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, client: client, logger: logger}
}

// Dir returns the scratch directory.
func (s *Store) Dir() string { return s.dir }

// Filename composes the canonical segment filename
// {sequence}.i{itag}.{ext} from the base URL's templated path.
func Filename(sequence segment.Sequence, baseURL string) (string, error) {
	itag, err := urlutil.PathParam(baseURL, "itag")
	if err != nil {
		return "", fmt.Errorf("composing segment filename: %w", err)
	}
	_, subtype, err := urlutil.MediaType(baseURL)
	if err != nil {
		return "", fmt.Errorf("composing segment filename: %w", err)
	}
	return fmt.Sprintf("%d.i%s.%s", sequence, itag, subtype), nil
}

// Fetch downloads segment {baseURL}sq/{sequence} into the scratch
// directory and returns the local path. When the canonical file already
// exists and Force is unset, the existing path is returned without
// network I/O.
func (s *Store) Fetch(ctx context.Context, sequence segment.Sequence, baseURL string, opts FetchOptions) (string, error) {
	filename := opts.Filename
	if filename == "" {
		var err error
		if filename, err = Filename(sequence, baseURL); err != nil {
			return "", err
		}
	}

	dir := s.dir
	if opts.Subdir != "" {
		dir = filepath.Join(dir, opts.Subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			s.logger.Debug("segment already downloaded", slog.Int64("sequence", int64(sequence)), slog.String("path", path))
			return path, nil
		}
	}

	body, err := s.request(ctx, sequence, baseURL, opts.Size)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := writeAtomic(path, body); err != nil {
		return "", fmt.Errorf("writing segment %d: %w", sequence, err)
	}
	return path, nil
}

// FetchBuffer downloads a segment (or its prefix) into memory.
func (s *Store) FetchBuffer(ctx context.Context, sequence segment.Sequence, baseURL string, size int64) ([]byte, error) {
	body, err := s.request(ctx, sequence, baseURL, size)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, &SegmentDownloadError{Sequence: sequence, Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

func (s *Store) request(ctx context.Context, sequence segment.Sequence, baseURL string, size int64) (io.ReadCloser, error) {
	url := urlutil.SegmentURL(baseURL, int64(sequence))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating segment request: %w", err)
	}
	if size > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", size))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SegmentDownloadError{Sequence: sequence, Reason: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if size > 0 {
			s.logger.Debug("range header ignored, downloading full content", slog.Int64("sequence", int64(sequence)))
		}
	case resp.StatusCode == http.StatusPartialContent:
	default:
		resp.Body.Close()
		return nil, &SegmentDownloadError{
			Sequence: sequence,
			Reason:   resp.Status,
			Status:   resp.StatusCode,
		}
	}
	return resp.Body, nil
}

// writeAtomic writes body to path via a temporary file and rename, so
// concurrent readers never observe a half-written segment.
func writeAtomic(path string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
