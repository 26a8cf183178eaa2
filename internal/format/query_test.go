package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/ytrewind/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.Representation{Itag: "140", MimeType: "audio/mp4", Codecs: "mp4a.40.2", BaseURL: "https://example.com/itag/140/", AudioSamplingRate: 44100},
		catalog.Representation{Itag: "251", MimeType: "audio/webm", Codecs: "opus", BaseURL: "https://example.com/itag/251/", AudioSamplingRate: 48000},
		catalog.Representation{Itag: "244", MimeType: "video/webm", Codecs: "vp9", BaseURL: "https://example.com/itag/244/", Width: 854, Height: 480, FrameRate: 30},
		catalog.Representation{Itag: "247", MimeType: "video/webm", Codecs: "vp9", BaseURL: "https://example.com/itag/247/", Width: 1280, Height: 720, FrameRate: 30},
		catalog.Representation{Itag: "302", MimeType: "video/webm", Codecs: "vp9", BaseURL: "https://example.com/itag/302/", Width: 1280, Height: 720, FrameRate: 60},
		catalog.Representation{Itag: "271", MimeType: "video/webm", Codecs: "vp9", BaseURL: "https://example.com/itag/271/", Width: 2560, Height: 1440, FrameRate: 30},
	)
}

func itagsOf(items []catalog.Representation) []string {
	itags := make([]string, 0, len(items))
	for _, r := range items {
		itags = append(itags, r.Itag)
	}
	return itags
}

func TestQueryConditions(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []string
	}{
		{name: "itag equality", spec: "itag eq 140", want: []string{"140"}},
		{name: "single equals shorthand", spec: "itag = 140", want: []string{"140"}},
		{name: "type equality", spec: "type eq audio", want: []string{"140", "251"}},
		{name: "numeric comparison", spec: "height ge 720", want: []string{"247", "271", "302"}},
		{name: "and chain", spec: "height eq 720 and frame_rate eq 60", want: []string{"302"}},
		{name: "or chain", spec: "itag eq 140 or itag eq 251", want: []string{"140", "251"}},
		{name: "bracketed group", spec: "type eq video and [height eq 480 or height eq 720]", want: []string{"244", "247", "302"}},
		{name: "contains", spec: "codecs contains vp", want: []string{"244", "247", "271", "302"}},
		{name: "quality comparison", spec: "quality gt 720p", want: []string{"271", "302"}},
		{name: "quoted value", spec: `mime_type eq "audio/mp4"`, want: []string{"140"}},
		{name: "bare mime value", spec: "mime_type eq audio/mp4", want: []string{"140"}},
		{name: "all keyword", spec: "all", want: []string{"140", "244", "247", "251", "271", "302"}},
		{name: "none keyword", spec: "none", want: nil},
		{name: "empty string literal means none", spec: "''", want: nil},
		{name: "missing attribute is false not error", spec: "height eq 720", want: []string{"247", "302"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(testCatalog(), tt.spec, Options{})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, itagsOf(got))
		})
	}
}

func TestQueryPipe(t *testing.T) {
	got, err := Query(testCatalog(), "type eq video | best", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"271"}, itagsOf(got))

	got, err = Query(testCatalog(), "type eq video | worst", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"244"}, itagsOf(got))

	got, err = Query(testCatalog(), "type eq video | height le 720 | best", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"302"}, itagsOf(got))
}

func TestQueryFallback(t *testing.T) {
	// The left side is empty, so the right side applies.
	got, err := Query(testCatalog(), "height eq 2160 ?: height eq 720", Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"247", "302"}, itagsOf(got))

	// The left side is non-empty and wins.
	got, err = Query(testCatalog(), "height eq 480 ?: height eq 720", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"244"}, itagsOf(got))
}

func TestQueryGrouping(t *testing.T) {
	got, err := Query(testCatalog(), "(type eq video | best) ?: all", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"271"}, itagsOf(got))
}

func TestQueryBareFunction(t *testing.T) {
	got, err := Query(testCatalog(), "best", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"271"}, itagsOf(got))
}

func TestQueryFunctionOnEmptyInput(t *testing.T) {
	got, err := Query(testCatalog(), "none | best", Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryCustomFunction(t *testing.T) {
	audioOnly := func(items []catalog.Representation) []catalog.Representation {
		var out []catalog.Representation
		for _, r := range items {
			if r.IsAudio() {
				out = append(out, r)
			}
		}
		return out
	}

	got, err := Query(testCatalog(), "all | audio-only", Options{
		Functions: map[string]Function{"audio-only": audioOnly},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"140", "251"}, itagsOf(got))
}

func TestQueryUnknownAttribute(t *testing.T) {
	_, err := Query(testCatalog(), "bitrate eq 128000", Options{})
	var unknownAttr *UnknownAttributeError
	require.ErrorAs(t, err, &unknownAttr)
	assert.Equal(t, "bitrate", unknownAttr.Attribute)
}

func TestQuerySyntaxErrors(t *testing.T) {
	specs := []string{
		"",
		"itag eq",
		"itag foo 140",
		"(itag eq 140",
		"type eq video and [height eq 720",
		"itag eq 140 | | best",
		"height $ 720",
	}
	for _, spec := range specs {
		_, err := Query(testCatalog(), spec, Options{})
		var syntaxErr *QuerySyntaxError
		assert.ErrorAs(t, err, &syntaxErr, "spec %q", spec)
	}
}

func TestQueryUnknownFunction(t *testing.T) {
	_, err := Query(testCatalog(), "all | nonexistent", Options{})
	var syntaxErr *QuerySyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestExpandAliases(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		aliases map[string]string
		want    string
		wantErr bool
	}{
		{name: "no aliases", spec: "itag eq 140", want: "itag eq 140"},
		{name: "builtin format alias", spec: "@mp4", want: "format eq mp4"},
		{name: "itag alias", spec: "@140", want: "itag eq 140"},
		{name: "quality alias", spec: "@720p", want: "height eq 720 and frame_rate eq 30"},
		{name: "quality alias with fps", spec: "@1080p60", want: "height eq 1080 and frame_rate eq 60"},
		{name: "user alias", spec: "@lowq", aliases: map[string]string{"lowq": "worst"}, want: "worst"},
		{
			name:    "recursive alias",
			spec:    "@preferred",
			aliases: map[string]string{"preferred": "@webm | best"},
			want:    "format eq webm | best",
		},
		{
			name:    "circular alias",
			spec:    "@a",
			aliases: map[string]string{"a": "@b", "b": "@a"},
			wantErr: true,
		},
		{name: "undefined alias", spec: "@nope-never", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandAliases(tt.spec, tt.aliases)
			if tt.wantErr {
				var aliasErr *AliasResolutionError
				require.ErrorAs(t, err, &aliasErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandAliasesIdempotent(t *testing.T) {
	once, err := ExpandAliases("@720p ?: @mp4 | best", nil)
	require.NoError(t, err)
	twice, err := ExpandAliases(once, nil)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestQueryWithAliases(t *testing.T) {
	got, err := Query(testCatalog(), "@1080p60 ?: @720p60", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"302"}, itagsOf(got))
}
