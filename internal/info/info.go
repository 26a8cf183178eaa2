// Package info models video metadata and extracts it from a stream's
// watch page.
package info

import (
	"fmt"
	"regexp"
	"strings"
)

// BroadcastStatus is the live status of a video.
type BroadcastStatus string

const (
	// StatusActive means the stream is live now; only active streams are
	// operable.
	StatusActive BroadcastStatus = "active"
	// StatusUpcoming means the broadcast has not started yet.
	StatusUpcoming BroadcastStatus = "upcoming"
	// StatusCompleted means the broadcast has ended.
	StatusCompleted BroadcastStatus = "completed"
	// StatusNone means the video is not a broadcast.
	StatusNone BroadcastStatus = "none"
)

// VideoInfo is the essential information about a video.
type VideoInfo struct {
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Status          BroadcastStatus `json:"status"`
	DashManifestURL string          `json:"dash_manifest_url,omitempty"`
}

// InfoExtractError indicates the watch page did not contain an expected
// structure.
type InfoExtractError struct {
	What string
}

func (e *InfoExtractError) Error() string {
	return fmt.Sprintf("could not extract video info: %s", e.What)
}

// BroadcastNotActiveError indicates the stream cannot be operated on in
// its current status.
type BroadcastNotActiveError struct {
	Status BroadcastStatus
}

func (e *BroadcastNotActiveError) Error() string {
	return fmt.Sprintf("stream is not live (status: %s)", e.Status)
}

// Watch-page extraction patterns. The page embeds schema.org VideoObject
// microdata and, for live streams, the DASH manifest URL in the player
// response JSON.
var (
	titlePattern          = regexp.MustCompile(`<meta\s+itemprop="name"\s+content="([^"]*)"`)
	authorPattern         = regexp.MustCompile(`<link\s+itemprop="name"\s+content="([^"]*)"`)
	broadcastEventPattern = regexp.MustCompile(`itemtype="https?://schema\.org/BroadcastEvent"`)
	endDatePattern        = regexp.MustCompile(`<meta\s+itemprop="endDate"\s+content="([^"]*)"`)
	dashManifestPattern   = regexp.MustCompile(`"dashManifestUrl":"(.*?)"`)
)

// ExtractVideoInfo parses the watch page of a video.
func ExtractVideoInfo(url, page string) (VideoInfo, error) {
	titleMatch := titlePattern.FindStringSubmatch(page)
	if titleMatch == nil {
		return VideoInfo{}, &InfoExtractError{What: "could not find a title"}
	}
	authorMatch := authorPattern.FindStringSubmatch(page)
	if authorMatch == nil {
		return VideoInfo{}, &InfoExtractError{What: "could not find an author"}
	}

	videoInfo := VideoInfo{
		URL:    url,
		Title:  titleMatch[1],
		Author: authorMatch[1],
		Status: StatusNone,
	}

	if broadcastEventPattern.MatchString(page) {
		if endDatePattern.MatchString(page) {
			videoInfo.Status = StatusCompleted
		} else {
			videoInfo.Status = StatusActive
			manifestMatch := dashManifestPattern.FindStringSubmatch(page)
			if manifestMatch == nil {
				return VideoInfo{}, &InfoExtractError{What: "could not find DASH manifest URL"}
			}
			videoInfo.DashManifestURL = unescapeJSONURL(manifestMatch[1])
		}
	}

	return videoInfo, nil
}

// jsonURLReplacer undoes the escaping the player response JSON applies
// to embedded URLs.
var jsonURLReplacer = strings.NewReplacer(`\/`, `/`, `&`, `&`)

func unescapeJSONURL(url string) string {
	return jsonURLReplacer.Replace(url)
}
