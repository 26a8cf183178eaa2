// Package urlutil provides parsing helpers for stream identifiers and the
// positional path parameters carried by segment base URLs.
//
// A base URL is a path whose segments alternate parameter names and values:
//
//	…/expire/1679810403/…/itag/140/…/mime/audio%2Fmp4/…/dur/2.000/…
//
// The helpers here tolerate arbitrary ordering of those fields.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadStreamIdentifier is returned when a watch URL or video ID cannot
// be recognized.
var ErrBadStreamIdentifier = errors.New("stream URL or ID not matched")

var (
	videoIDPattern  = regexp.MustCompile(`^[\w-]{11}$`)
	videoURLPattern = regexp.MustCompile(`^https://(?:www\.youtube\.com/watch\?v=|youtu\.be/)([\w-]{11})(?:$|[&?])`)
)

// NormalizeVideoURL converts a video URL or bare 11-character ID into the
// canonical watch URL. Any other form fails with ErrBadStreamIdentifier.
func NormalizeVideoURL(urlOrID string) (string, error) {
	if videoIDPattern.MatchString(urlOrID) {
		return BuildVideoURL(urlOrID), nil
	}
	if m := videoURLPattern.FindStringSubmatch(urlOrID); m != nil {
		return BuildVideoURL(m[1]), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadStreamIdentifier, urlOrID)
}

// BuildVideoURL composes the canonical watch URL for a video ID.
func BuildVideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// VideoIDFromURL extracts the video ID from a canonical or short watch URL.
func VideoIDFromURL(videoURL string) (string, error) {
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadStreamIdentifier, videoURL)
	}
	if v := parsed.Query().Get("v"); v != "" {
		return v, nil
	}
	if id := strings.Trim(parsed.Path, "/"); videoIDPattern.MatchString(id) {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadStreamIdentifier, videoURL)
}

// PathParam extracts the value following the named positional field in a
// base URL's path.
func PathParam(baseURL, name string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	parts := strings.Split(parsed.Path, "/")
	for i, part := range parts {
		if part == name {
			if i+1 >= len(parts) || parts[i+1] == "" {
				return "", fmt.Errorf("value of %q is not in URL", name)
			}
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("parameter %q is not in URL", name)
}

// MediaType extracts the MIME type and subtype from the base URL's
// percent-encoded mime field, e.g. ("audio", "mp4").
func MediaType(baseURL string) (string, string, error) {
	raw, err := PathParam(baseURL, "mime")
	if err != nil {
		return "", "", err
	}
	typeName, subtype, found := strings.Cut(raw, "%2F")
	if !found {
		typeName, subtype, found = strings.Cut(raw, "/")
	}
	if !found {
		return "", "", fmt.Errorf("malformed mime value %q", raw)
	}
	return typeName, subtype, nil
}

// SegmentDuration extracts the nominal segment duration in seconds from
// the base URL's dur field.
func SegmentDuration(baseURL string) (float64, error) {
	raw, err := PathParam(baseURL, "dur")
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed dur value %q: %w", raw, err)
	}
	return dur, nil
}

// VideoIDFromBaseURL extracts the 11-character video ID embedded in the
// base URL's id field.
func VideoIDFromBaseURL(baseURL string) (string, error) {
	raw, err := PathParam(baseURL, "id")
	if err != nil {
		return "", err
	}
	if len(raw) < 11 {
		return "", fmt.Errorf("malformed id value %q", raw)
	}
	return raw[:11], nil
}

// VideoURLFromBaseURL composes the canonical watch URL for the stream a
// base URL belongs to.
func VideoURLFromBaseURL(baseURL string) (string, error) {
	id, err := VideoIDFromBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	return BuildVideoURL(id), nil
}

// SegmentURL composes the URL of a numbered segment under a base URL.
func SegmentURL(baseURL string, sequence int64) string {
	return fmt.Sprintf("%s/sq/%d", strings.TrimRight(baseURL, "/"), sequence)
}

// Expiry returns the expiration time carried in the base URL's expire field.
func Expiry(baseURL string) (time.Time, error) {
	raw, err := PathParam(baseURL, "expire")
	if err != nil {
		return time.Time{}, err
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed expire value %q: %w", raw, err)
	}
	return time.Unix(epoch, 0), nil
}

// IsExpired reports whether the base URL's expire epoch has passed.
func IsExpired(baseURL string, now time.Time) (bool, error) {
	expiry, err := Expiry(baseURL)
	if err != nil {
		return false, err
	}
	return !now.Before(expiry), nil
}
