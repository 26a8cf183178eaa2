// Package mpd composes, refreshes and parses the static DASH manifests
// that describe a located rewind interval for external players.
package mpd

import (
	"encoding/xml"
	"fmt"
)

// Namespace is the MPD schema namespace.
const Namespace = "urn:mpeg:DASH:schema:MPD:2011"

// Profile is the DASH profile advertised by composed manifests.
const Profile = "urn:mpeg:dash:profile:isoff-main:2011"

// UnknownRepresentationError indicates a manifest references an itag that
// the fresh catalog no longer carries.
type UnknownRepresentationError struct {
	Itag string
}

func (e *UnknownRepresentationError) Error() string {
	return fmt.Sprintf("no representation with itag %q in the catalog", e.Itag)
}

// Manifest is the static MPD document model. Only the elements composed
// by this package are modelled; parsing foreign manifests tolerates and
// drops anything else.
type Manifest struct {
	XMLName                   xml.Name            `xml:"MPD"`
	Xmlns                     string              `xml:"xmlns,attr"`
	Profiles                  string              `xml:"profiles,attr"`
	Type                      string              `xml:"type,attr"`
	MediaPresentationDuration string              `xml:"mediaPresentationDuration,attr"`
	ProgramInformation        *ProgramInformation `xml:"ProgramInformation,omitempty"`
	Period                    Period              `xml:"Period"`
}

// ProgramInformation carries the stream title and canonical URL.
type ProgramInformation struct {
	Title  string `xml:"Title"`
	Source string `xml:"Source"`
}

// Period is the single static period of a composed manifest.
type Period struct {
	Duration       string          `xml:"duration,attr"`
	AdaptationSets []AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet groups the representations of one MIME type.
type AdaptationSet struct {
	ID                  int              `xml:"id,attr"`
	MimeType            string           `xml:"mimeType,attr"`
	SubsegmentAlignment bool             `xml:"subsegmentAlignment,attr"`
	SegmentTemplate     SegmentTemplate  `xml:"SegmentTemplate"`
	Representations     []Representation `xml:"Representation"`
}

// SegmentTemplate maps segment numbers to URLs below each
// representation's BaseURL.
type SegmentTemplate struct {
	Media       string `xml:"media,attr"`
	StartNumber int64  `xml:"startNumber,attr"`
	Duration    int64  `xml:"duration,attr"`
	Timescale   int64  `xml:"timescale,attr"`
}

// Representation is one audio or video variant.
type Representation struct {
	ID                string `xml:"id,attr"`
	Codecs            string `xml:"codecs,attr"`
	StartWithSAP      int    `xml:"startWithSAP,attr"`
	AudioSamplingRate int    `xml:"audioSamplingRate,attr,omitempty"`
	Width             int    `xml:"width,attr,omitempty"`
	Height            int    `xml:"height,attr,omitempty"`
	MaxPlayoutRate    int    `xml:"maxPlayoutRate,attr,omitempty"`
	FrameRate         int    `xml:"frameRate,attr,omitempty"`
	BaseURL           string `xml:"BaseURL"`
}
