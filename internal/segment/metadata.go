// Package segment models media segments and the textual metadata header
// embedded at the start of their byte streams.
package segment

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Sequence is the monotonic integer identifier of a segment within its
// stream.
type Sequence int64

// HeaderPrefixSize is the number of bytes sufficient to cover the metadata
// header in segment files. The minimum varies between media formats, so
// the value was determined empirically for all available formats.
const HeaderPrefixSize = 2000

const microsecondsPerSecond = 1e6

// MalformedMetadataError indicates a required metadata field is missing
// from a segment header.
type MalformedMetadataError struct {
	Field string
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("failed to parse metadata field: %s", e.Field)
}

// Metadata is the parsed segment metadata header.
//
// All timestamp and duration values are in seconds; the wire encoding is
// microseconds and is converted during parsing.
type Metadata struct {
	SequenceNumber        Sequence
	IngestionWalltime     float64
	IngestionUncertainty  float64
	TargetDuration        float64
	FirstFrameTime        float64
	FirstFrameUncertainty float64

	// Optional fields; nil or empty when absent from the header.
	StreamDuration *float64
	MaxDVRDuration *float64
	Streamable     string
	EncodingAlias  string
}

// IngestionStart is the segment ingestion start date, corresponding to
// the Ingestion-Walltime-Us value.
func (m Metadata) IngestionStart() time.Time {
	return timeFromUnixSeconds(m.IngestionWalltime)
}

func timeFromUnixSeconds(seconds float64) time.Time {
	return time.UnixMicro(int64(math.Round(seconds * microsecondsPerSecond))).UTC()
}

// fieldPatterns holds one extraction pattern per field name; the header
// is scanned by regular extraction rather than positionally.
var fieldPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, name := range []string{
		"Sequence-Number",
		"Ingestion-Walltime-Us",
		"Ingestion-Uncertainty-Us",
		"Stream-Duration-Us",
		"Max-Dvr-Duration-Us",
		"Target-Duration-Us",
		"Streamable",
		"First-Frame-Time-Us",
		"First-Frame-Uncertainty-Us",
		"Encoding-Alias",
	} {
		fieldPatterns[name] = regexp.MustCompile(name + `:\s(.+)\r\n`)
	}
}

func searchField(name string, content []byte) (string, bool) {
	if m := fieldPatterns[name].FindSubmatch(content); m != nil {
		return string(m[1]), true
	}
	return "", false
}

func requiredSeconds(name string, content []byte) (float64, error) {
	raw, ok := searchField(name, content)
	if !ok {
		return 0, &MalformedMetadataError{Field: name}
	}
	return microsecondsToSeconds(name, raw)
}

func optionalSeconds(name string, content []byte) (*float64, error) {
	raw, ok := searchField(name, content)
	if !ok {
		return nil, nil
	}
	value, err := microsecondsToSeconds(name, raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func microsecondsToSeconds(name, raw string) (float64, error) {
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &MalformedMetadataError{Field: name}
	}
	return float64(us) / microsecondsPerSecond, nil
}

// ParseMetadata parses the metadata header from full or partial segment
// content. If partial content is provided, it must be at least
// HeaderPrefixSize bytes (or the whole segment when shorter).
func ParseMetadata(content []byte) (Metadata, error) {
	var m Metadata

	rawSequence, ok := searchField("Sequence-Number", content)
	if !ok {
		return m, &MalformedMetadataError{Field: "Sequence-Number"}
	}
	sequence, err := strconv.ParseInt(rawSequence, 10, 64)
	if err != nil {
		return m, &MalformedMetadataError{Field: "Sequence-Number"}
	}
	m.SequenceNumber = Sequence(sequence)

	if m.IngestionWalltime, err = requiredSeconds("Ingestion-Walltime-Us", content); err != nil {
		return m, err
	}
	if m.IngestionUncertainty, err = requiredSeconds("Ingestion-Uncertainty-Us", content); err != nil {
		return m, err
	}
	if m.TargetDuration, err = requiredSeconds("Target-Duration-Us", content); err != nil {
		return m, err
	}
	if m.FirstFrameTime, err = requiredSeconds("First-Frame-Time-Us", content); err != nil {
		return m, err
	}
	if m.FirstFrameUncertainty, err = requiredSeconds("First-Frame-Uncertainty-Us", content); err != nil {
		return m, err
	}

	if m.StreamDuration, err = optionalSeconds("Stream-Duration-Us", content); err != nil {
		return m, err
	}
	if m.MaxDVRDuration, err = optionalSeconds("Max-Dvr-Duration-Us", content); err != nil {
		return m, err
	}
	m.Streamable, _ = searchField("Streamable", content)
	m.EncodingAlias, _ = searchField("Encoding-Alias", content)

	return m, nil
}
