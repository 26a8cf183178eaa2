package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchURL = "https://www.youtube.com/watch?v=kHwmzef842g"

func watchPage(broadcast, ended, withManifest bool) string {
	page := `<html><head>` +
		`<div itemtype="http://schema.org/VideoObject">` +
		`<meta itemprop="name" content="Relaxing Jazz Radio">` +
		`<div itemtype="http://schema.org/Person"><link itemprop="name" content="Some Cafe"></div>`
	if broadcast {
		page += `<div itemtype="http://schema.org/BroadcastEvent">` +
			`<meta itemprop="startDate" content="2023-03-20T00:00:00+00:00">`
		if ended {
			page += `<meta itemprop="endDate" content="2023-03-26T00:00:00+00:00">`
		}
		page += `</div>`
	}
	page += `</div>`
	if withManifest {
		page += `<script>var ytInitialPlayerResponse = {"streamingData":` +
			`{"dashManifestUrl":"https:\/\/manifest.googlevideo.com\/api\/manifest\/dash\/id\/kHwmzef842g.2"}};</script>`
	}
	return page + `</head></html>`
}

func TestExtractVideoInfoActiveStream(t *testing.T) {
	videoInfo, err := ExtractVideoInfo(watchURL, watchPage(true, false, true))
	require.NoError(t, err)

	assert.Equal(t, watchURL, videoInfo.URL)
	assert.Equal(t, "Relaxing Jazz Radio", videoInfo.Title)
	assert.Equal(t, "Some Cafe", videoInfo.Author)
	assert.Equal(t, StatusActive, videoInfo.Status)
	assert.Equal(t,
		"https://manifest.googlevideo.com/api/manifest/dash/id/kHwmzef842g.2",
		videoInfo.DashManifestURL)
}

func TestExtractVideoInfoCompletedStream(t *testing.T) {
	videoInfo, err := ExtractVideoInfo(watchURL, watchPage(true, true, false))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, videoInfo.Status)
	assert.Empty(t, videoInfo.DashManifestURL)
}

func TestExtractVideoInfoNotABroadcast(t *testing.T) {
	videoInfo, err := ExtractVideoInfo(watchURL, watchPage(false, false, false))
	require.NoError(t, err)

	assert.Equal(t, StatusNone, videoInfo.Status)
}

func TestExtractVideoInfoMissingTitle(t *testing.T) {
	_, err := ExtractVideoInfo(watchURL, "<html></html>")

	var extractErr *InfoExtractError
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractVideoInfoActiveWithoutManifestFails(t *testing.T) {
	_, err := ExtractVideoInfo(watchURL, watchPage(true, false, false))

	var extractErr *InfoExtractError
	require.ErrorAs(t, err, &extractErr)
}

func TestBroadcastNotActiveError(t *testing.T) {
	err := &BroadcastNotActiveError{Status: StatusUpcoming}
	assert.Contains(t, err.Error(), "upcoming")
}
