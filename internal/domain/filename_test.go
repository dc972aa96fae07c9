package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h_i", SanitizeFilename(`a\b/c:d*e?f"g<h>i`))
	assert.Equal(t, "a_b", SanitizeFilename("a|b"))
	assert.Equal(t, "plain name", SanitizeFilename("plain name"))
}

func TestItemFilename(t *testing.T) {
	assert.Equal(t, "My Clip.mp4", ItemFilename("My Clip", "mp4"))
	assert.Equal(t, "AC_DC live.webm", ItemFilename("AC/DC live", "webm"))
	assert.Equal(t, "Song.mp4", ItemFilename("Song", ""))
	assert.Equal(t, DefaultItemFilename, ItemFilename("", "webm"))
	assert.Equal(t, DefaultItemFilename, ItemFilename("   ", "mp4"))
}

func TestArchiveFilename(t *testing.T) {
	assert.Equal(t, "My Playlist.zip", ArchiveFilename("My Playlist"))
	assert.Equal(t, "Q_A.zip", ArchiveFilename("Q?A"))
	assert.Equal(t, DefaultArchiveName, ArchiveFilename(""))
}
