package mpd

import (
	"encoding/xml"
	"fmt"

	"github.com/jmylchreest/ytrewind/internal/catalog"
)

// Parse decodes a manifest document.
func Parse(content string) (Manifest, error) {
	var manifest Manifest
	if err := xml.Unmarshal([]byte(content), &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest, nil
}

// ExtractRepresentations converts a manifest's representations into
// catalog entries, e.g. to start a playback from a saved manifest file.
func ExtractRepresentations(content string) ([]catalog.Representation, error) {
	manifest, err := Parse(content)
	if err != nil {
		return nil, err
	}

	var representations []catalog.Representation
	for _, set := range manifest.Period.AdaptationSets {
		for _, r := range set.Representations {
			representations = append(representations, catalog.Representation{
				Itag:              r.ID,
				MimeType:          set.MimeType,
				Codecs:            r.Codecs,
				BaseURL:           r.BaseURL,
				AudioSamplingRate: r.AudioSamplingRate,
				Width:             r.Width,
				Height:            r.Height,
				FrameRate:         r.FrameRate,
			})
		}
	}
	return representations, nil
}

// Refresh keeps a manifest's topology but substitutes each
// representation's BaseURL with the fresh URL found by matching itag
// against the new catalog. The expire comment is recomputed from the
// refreshed URLs.
func Refresh(content string, c *catalog.Catalog) (string, error) {
	manifest, err := Parse(content)
	if err != nil {
		return "", err
	}

	someBaseURL := ""
	for setIndex := range manifest.Period.AdaptationSets {
		set := &manifest.Period.AdaptationSets[setIndex]
		for repIndex := range set.Representations {
			representation := &set.Representations[repIndex]
			fresh, ok := c.GetByItag(representation.ID)
			if !ok {
				return "", &UnknownRepresentationError{Itag: representation.ID}
			}
			representation.BaseURL = fresh.BaseURL
			someBaseURL = fresh.BaseURL
		}
	}
	if someBaseURL == "" {
		return "", fmt.Errorf("refreshing manifest: no representations found")
	}

	return serialize(manifest, someBaseURL)
}
