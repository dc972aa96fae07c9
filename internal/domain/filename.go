package domain

import (
	"regexp"
	"strings"
)

const (
	DefaultVideoExt     = "mp4"
	DefaultItemFilename = "video.mp4"
	DefaultArchiveName  = "playlist.zip"
)

var illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename replaces characters that are illegal in filenames with "_"
func SanitizeFilename(name string) string {
	return illegalFilenameChars.ReplaceAllString(name, "_")
}

// DeriveFilename builds "<sanitized title>.<ext>", or fallback when nothing usable remains
func DeriveFilename(title, ext, fallback string) string {
	base := strings.TrimSpace(SanitizeFilename(title))
	if base == "" {
		return fallback
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// ItemFilename names a saved single item or collection member
func ItemFilename(title, ext string) string {
	if ext == "" {
		ext = DefaultVideoExt
	}
	return DeriveFilename(title, ext, DefaultItemFilename)
}

// ArchiveFilename names a saved batch archive
func ArchiveFilename(title string) string {
	return DeriveFilename(title, "zip", DefaultArchiveName)
}
