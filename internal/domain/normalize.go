package domain

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// truncatedSchemes maps a scheme missing 1-3 leading characters to the characters to restore
var truncatedSchemes = []struct {
	prefix  string
	missing string
}{
	{"ttps://", "h"},
	{"tps://", "ht"},
	{"ps://", "htt"},
}

// NormalizeURL repairs and canonicalizes a raw locator.
// Blank input yields "" which callers treat as nothing to do.
func NormalizeURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}

	for _, s := range truncatedSchemes {
		if strings.HasPrefix(url, s.prefix) {
			url = s.missing + url
			break
		}
	}

	if !schemePattern.MatchString(url) {
		url = "https://" + url
	}
	return url
}
