package segment

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Segment is a media segment backed by a local file or byte buffer.
type Segment struct {
	Sequence  Sequence
	Metadata  Metadata
	LocalPath string
	IsPartial bool
}

// FromFile creates a Segment by reading the metadata header from the file
// at path. Only the header prefix is read.
func FromFile(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	defer f.Close()

	prefix := make([]byte, HeaderPrefixSize)
	n, err := io.ReadFull(f, prefix)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading segment file: %w", err)
	}

	metadata, err := ParseMetadata(prefix[:n])
	if err != nil {
		return nil, err
	}

	return &Segment{
		Sequence:  metadata.SequenceNumber,
		Metadata:  metadata,
		LocalPath: path,
	}, nil
}

// FromBytes creates a Segment from full or partial byte content.
func FromBytes(content []byte) (*Segment, error) {
	metadata, err := ParseMetadata(content)
	if err != nil {
		return nil, err
	}
	return &Segment{
		Sequence:  metadata.SequenceNumber,
		Metadata:  metadata,
		IsPartial: true,
	}, nil
}

// IngestionStart is the segment ingestion start date.
func (s *Segment) IngestionStart() time.Time {
	return s.Metadata.IngestionStart()
}

// IngestionEnd is the segment ingestion end date given the actual segment
// duration. The actual duration is measured from decoded packet
// timestamps and may be shorter than the target when the stream drops.
func (s *Segment) IngestionEnd(actualDuration float64) time.Time {
	return s.IngestionStart().Add(time.Duration(actualDuration * float64(time.Second)))
}
