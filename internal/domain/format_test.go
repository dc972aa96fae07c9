package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFormats() []FormatVariant {
	return []FormatVariant{
		{FormatID: "18", Ext: "mp4", AudioCodec: "mp4a.40.2", VideoCodec: "avc1", Resolution: "640x360"},
		{FormatID: "137", Ext: "MP4", AudioCodec: "none", VideoCodec: "avc1", Resolution: "1920x1080"},
		{FormatID: "251", Ext: "webm", AudioCodec: "opus", VideoCodec: "none", Note: "medium"},
		{FormatID: "22", Ext: "mp4", AudioCodec: "mp4a.40.2", VideoCodec: "avc1", Resolution: "1280x720"},
		{FormatID: "140", Ext: "m4a", AudioCodec: "mp4a.40.2", VideoCodec: "none"},
	}
}

func ids(formats []FormatVariant) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.FormatID)
	}
	return out
}

func TestFilterByExt_All(t *testing.T) {
	formats := sampleFormats()
	assert.Equal(t, formats, FilterByExt(formats, "all"))
	assert.Equal(t, formats, FilterByExt(formats, "ALL"))
	assert.Equal(t, formats, FilterByExt(formats, ""))
	assert.Nil(t, FilterByExt(nil, "all"))
}

func TestFilterByExt_CaseInsensitivePreservesOrder(t *testing.T) {
	formats := sampleFormats()

	assert.Equal(t, []string{"18", "137", "22"}, ids(FilterByExt(formats, "mp4")))
	assert.Equal(t, []string{"18", "137", "22"}, ids(FilterByExt(formats, "Mp4")))
	assert.Equal(t, []string{"251"}, ids(FilterByExt(formats, "webm")))
	assert.Empty(t, FilterByExt(formats, "mkv"))
}

func TestClassifyProgressive_ScenarioA(t *testing.T) {
	formats := []FormatVariant{
		{FormatID: "a", Ext: "mp4", AudioCodec: "aac", VideoCodec: "h264"},
		{FormatID: "b", Ext: "webm", AudioCodec: "none", VideoCodec: "vp9"},
	}

	groups := ClassifyProgressive(formats)
	assert.Equal(t, []string{"a"}, ids(groups.Progressive))
	assert.Equal(t, []string{"b"}, ids(groups.Other))

	def, ok := groups.Default()
	require.True(t, ok)
	assert.Equal(t, "a", def.FormatID)
}

func TestClassifyProgressive_StrictPartition(t *testing.T) {
	formats := sampleFormats()
	groups := ClassifyProgressive(formats)

	seen := make(map[string]int)
	for _, f := range groups.Progressive {
		seen[f.FormatID]++
		assert.True(t, f.IsProgressive())
	}
	for _, f := range groups.Other {
		seen[f.FormatID]++
		assert.False(t, f.IsProgressive())
	}
	assert.Len(t, seen, len(formats))
	for id, n := range seen {
		assert.Equal(t, 1, n, "format %s appears in both buckets", id)
	}
	assert.Equal(t, []string{"18", "22", "137", "251", "140"}, ids(groups.Ordered()))
}

func TestFormatGroups_DefaultFallsBackToFirstEntry(t *testing.T) {
	formats := []FormatVariant{
		{FormatID: "v", AudioCodec: "none", VideoCodec: "vp9"},
		{FormatID: "a", AudioCodec: "opus", VideoCodec: "none"},
	}
	def, ok := ClassifyProgressive(formats).Default()
	require.True(t, ok)
	assert.Equal(t, "v", def.FormatID)

	_, ok = ClassifyProgressive(nil).Default()
	assert.False(t, ok)
}

func TestDefaultFormat_UsesFilter(t *testing.T) {
	formats := sampleFormats()

	def, ok := DefaultFormat(formats, "all")
	require.True(t, ok)
	assert.Equal(t, "18", def.FormatID)

	def, ok = DefaultFormat(formats, "webm")
	require.True(t, ok)
	assert.Equal(t, "251", def.FormatID)

	_, ok = DefaultFormat(formats, "mkv")
	assert.False(t, ok)
}

func TestFormatVariant_Label(t *testing.T) {
	f := FormatVariant{Ext: "mp4", Resolution: "1280x720", Filesize: 5 * 1024 * 1024}
	assert.Equal(t, "1280x720 • mp4 • 5.0 MB", f.Label())

	f = FormatVariant{Ext: "webm", Note: "tiny"}
	assert.Equal(t, "tiny • webm • N/A", f.Label())

	f = FormatVariant{Ext: "m4a"}
	assert.Equal(t, "Unknown • m4a • N/A", f.Label())
}

func TestIsRestricted(t *testing.T) {
	hosts := []string{"facebook.com"}
	assert.True(t, IsRestricted("https://www.facebook.com/watch?v=1", hosts))
	assert.True(t, IsRestricted("https://m.FACEBOOK.com/reel/2", hosts))
	assert.False(t, IsRestricted("https://youtube.com/watch?v=1", hosts))
	assert.False(t, IsRestricted("", hosts))
	assert.False(t, IsRestricted("https://facebook.com/x", nil))
}

func TestValidFilter(t *testing.T) {
	assert.True(t, ValidFilter("all"))
	assert.True(t, ValidFilter("MKV"))
	assert.False(t, ValidFilter("avi"))
}
