package mpd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/info"
	"github.com/jmylchreest/ytrewind/internal/rewind"
	"github.com/jmylchreest/ytrewind/internal/urlutil"
)

// Compose builds a static manifest that maps the located interval's
// segment numbers to the representations' base URLs.
func Compose(videoInfo info.VideoInfo, interval rewind.Interval, c *catalog.Catalog) (string, error) {
	representations := c.All()
	if len(representations) == 0 {
		return "", fmt.Errorf("composing manifest: catalog is empty")
	}

	someBaseURL := representations[0].BaseURL
	segmentDuration, err := urlutil.SegmentDuration(someBaseURL)
	if err != nil {
		return "", fmt.Errorf("composing manifest: %w", err)
	}

	segmentDurationMS := int64(segmentDuration) * 1000
	rangeDurationS := interval.Len() * int64(segmentDuration)
	durationAttr := fmt.Sprintf("PT%dS", rangeDurationS)

	manifest := Manifest{
		Xmlns:                     Namespace,
		Profiles:                  Profile,
		Type:                      "static",
		MediaPresentationDuration: durationAttr,
		Period:                    Period{Duration: durationAttr},
	}
	if videoInfo.Title != "" || videoInfo.URL != "" {
		manifest.ProgramInformation = &ProgramInformation{
			Title:  videoInfo.Title,
			Source: videoInfo.URL,
		}
	}

	template := SegmentTemplate{
		Media:       "sq/$Number$",
		StartNumber: int64(interval.Start),
		Duration:    segmentDurationMS,
		Timescale:   1000,
	}

	mimeTypes := make([]string, 0, 2)
	byMimeType := make(map[string][]catalog.Representation)
	for _, r := range representations {
		if _, seen := byMimeType[r.MimeType]; !seen {
			mimeTypes = append(mimeTypes, r.MimeType)
		}
		byMimeType[r.MimeType] = append(byMimeType[r.MimeType], r)
	}
	sort.Strings(mimeTypes)

	for i, mimeType := range mimeTypes {
		set := AdaptationSet{
			ID:                  i,
			MimeType:            mimeType,
			SubsegmentAlignment: true,
			SegmentTemplate:     template,
		}
		for _, r := range byMimeType[mimeType] {
			representation := Representation{
				ID:           r.Itag,
				Codecs:       r.Codecs,
				StartWithSAP: 1,
				BaseURL:      r.BaseURL,
			}
			if r.IsAudio() {
				representation.AudioSamplingRate = r.AudioSamplingRate
			} else {
				representation.Width = r.Width
				representation.Height = r.Height
				representation.MaxPlayoutRate = 1
				representation.FrameRate = r.FrameRate
			}
			set.Representations = append(set.Representations, representation)
		}
		manifest.Period.AdaptationSets = append(manifest.Period.AdaptationSets, set)
	}

	return serialize(manifest, someBaseURL)
}

// serialize renders a manifest deterministically: XML declaration, the
// expire comment, then the indented document.
func serialize(manifest Manifest, someBaseURL string) (string, error) {
	// Normalize fields a round-trip through Parse may have qualified, so
	// composed and refreshed documents serialize identically.
	manifest.XMLName = xml.Name{Local: "MPD"}
	manifest.Xmlns = Namespace

	body, err := xml.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(expireComment(someBaseURL))
	buf.WriteString("\n")
	buf.Write(body)
	buf.WriteString("\n")
	return buf.String(), nil
}

// expireComment composes the comment line carrying the base URL expire
// date.
func expireComment(baseURL string) string {
	expiry, err := urlutil.Expiry(baseURL)
	if err != nil {
		return "<!-- This file is created with ytrewind -->"
	}
	return fmt.Sprintf("<!-- This file is created with ytrewind, and expires at %s -->",
		expiry.UTC().Format(time.RFC3339))
}
