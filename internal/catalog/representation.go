// Package catalog models the set of stream representations (audio and
// video variants) exposed by a live stream, indexed by itag.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Representation is one encoding of a stream: a single codec and
// resolution or sampling-rate combination, addressed by its itag.
type Representation struct {
	// Itag is the opaque identifier of this representation, e.g. "140".
	Itag string `json:"itag"`
	// MimeType is e.g. "audio/mp4" or "video/webm".
	MimeType string `json:"mime_type"`
	// Codecs is the codec name, e.g. "opus", "vp9".
	Codecs string `json:"codecs"`
	// BaseURL is the templated segment endpoint.
	BaseURL string `json:"base_url"`

	// AudioSamplingRate is set for audio representations (in Hz).
	AudioSamplingRate int `json:"audio_sampling_rate,omitempty"`

	// Width, Height and FrameRate are set for video representations.
	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	FrameRate int `json:"frame_rate,omitempty"`
}

// Type is the MIME type name, e.g. "audio" or "video".
func (r Representation) Type() string {
	name, _, _ := strings.Cut(r.MimeType, "/")
	return name
}

// Format is the MIME subtype, e.g. "mp4" or "webm".
func (r Representation) Format() string {
	_, subtype, _ := strings.Cut(r.MimeType, "/")
	return subtype
}

// IsAudio reports whether this is an audio representation.
func (r Representation) IsAudio() bool { return r.Type() == "audio" }

// IsVideo reports whether this is a video representation.
func (r Representation) IsVideo() bool { return r.Type() == "video" }

// Quality returns the video quality of this representation. Meaningless
// for audio representations.
func (r Representation) Quality() Quality {
	return Quality{Height: r.Height, FrameRate: float64(r.FrameRate)}
}

// Quality represents a video quality as height and frame rate. Ordering
// is lexicographic on (height, frame rate).
type Quality struct {
	Height    int
	FrameRate float64
}

// ParseQuality creates a Quality from a string such as "720p" or
// "1080p60". A missing frame rate means 30.
func ParseQuality(value string) (Quality, error) {
	height, frameRate, found := strings.Cut(value, "p")
	if !found {
		return Quality{}, fmt.Errorf("value %q not formatted as video quality", value)
	}
	h, err := strconv.Atoi(height)
	if err != nil {
		return Quality{}, fmt.Errorf("value %q not formatted as video quality", value)
	}
	fr := 30.0
	if frameRate != "" {
		if fr, err = strconv.ParseFloat(frameRate, 64); err != nil {
			return Quality{}, fmt.Errorf("value %q not formatted as video quality", value)
		}
	}
	return Quality{Height: h, FrameRate: fr}, nil
}

// String formats the quality as "720p" or "1080p60".
func (q Quality) String() string {
	if q.FrameRate == 30 {
		return fmt.Sprintf("%dp", q.Height)
	}
	return fmt.Sprintf("%dp%.4g", q.Height, q.FrameRate)
}

// Compare orders qualities lexicographically on (height, frame rate).
// It returns -1, 0 or 1.
func (q Quality) Compare(other Quality) int {
	switch {
	case q.Height < other.Height:
		return -1
	case q.Height > other.Height:
		return 1
	case q.FrameRate < other.FrameRate:
		return -1
	case q.FrameRate > other.FrameRate:
		return 1
	default:
		return 0
	}
}
