package domain

import "strings"

// FilterAll disables extension filtering
const FilterAll = "all"

// FilterTabs lists the container filters offered to the user
var FilterTabs = []string{FilterAll, "mp4", "mkv", "webm", "mp3", "m4a"}

// FormatGroups is a strict partition of a format list into progressive and other variants
type FormatGroups struct {
	Progressive []FormatVariant `json:"progressive"`
	Other       []FormatVariant `json:"other"`
}

// FilterByExt keeps the variants whose container matches ext, case-insensitively,
// preserving their relative order. "all" (or an empty filter) returns formats unchanged.
func FilterByExt(formats []FormatVariant, ext string) []FormatVariant {
	if ext == "" || strings.EqualFold(ext, FilterAll) {
		return formats
	}

	filtered := make([]FormatVariant, 0, len(formats))
	for _, f := range formats {
		if f.Ext != "" && strings.EqualFold(f.Ext, ext) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// ClassifyProgressive partitions formats into progressive (audio+video) and other variants
func ClassifyProgressive(formats []FormatVariant) FormatGroups {
	var groups FormatGroups
	for _, f := range formats {
		if f.IsProgressive() {
			groups.Progressive = append(groups.Progressive, f)
		} else {
			groups.Other = append(groups.Other, f)
		}
	}
	return groups
}

// Ordered returns the variants in presentation order, progressive first
func (g FormatGroups) Ordered() []FormatVariant {
	ordered := make([]FormatVariant, 0, len(g.Progressive)+len(g.Other))
	ordered = append(ordered, g.Progressive...)
	return append(ordered, g.Other...)
}

// Default returns the preferred variant: the first progressive entry, else the first entry overall
func (g FormatGroups) Default() (FormatVariant, bool) {
	if len(g.Progressive) > 0 {
		return g.Progressive[0], true
	}
	if len(g.Other) > 0 {
		return g.Other[0], true
	}
	return FormatVariant{}, false
}

// DefaultFormat resolves the default variant for a format list under the given filter
func DefaultFormat(formats []FormatVariant, ext string) (FormatVariant, bool) {
	return ClassifyProgressive(FilterByExt(formats, ext)).Default()
}

// FindFormat looks up a variant by id
func FindFormat(formats []FormatVariant, formatID string) (FormatVariant, bool) {
	for _, f := range formats {
		if f.FormatID == formatID {
			return f, true
		}
	}
	return FormatVariant{}, false
}

// ValidFilter checks if ext is one of the offered filter tabs
func ValidFilter(ext string) bool {
	for _, tab := range FilterTabs {
		if strings.EqualFold(tab, ext) {
			return true
		}
	}
	return false
}
