package domain

import (
	"fmt"
	"strings"
)

// ResourceKind discriminates the two shapes a fetched resource can take
type ResourceKind string

const (
	KindSingle     ResourceKind = "single"
	KindCollection ResourceKind = "collection"
)

// FormatVariant is one encoded-quality option for an item
type FormatVariant struct {
	FormatID   string `json:"formatId"`
	Ext        string `json:"ext"`
	AudioCodec string `json:"audioCodec"`
	VideoCodec string `json:"videoCodec"`
	Filesize   int64  `json:"filesize,omitempty"` // 0 when the backend did not report a size
	Resolution string `json:"resolution,omitempty"`
	Note       string `json:"note,omitempty"`
}

// IsProgressive reports whether the variant carries both audio and video
func (f FormatVariant) IsProgressive() bool {
	return f.AudioCodec != "none" && f.VideoCodec != "none"
}

// Label renders the variant the way the format picker shows it
func (f FormatVariant) Label() string {
	quality := f.Resolution
	if quality == "" {
		quality = f.Note
	}
	if quality == "" {
		quality = "Unknown"
	}

	size := "N/A"
	if f.Filesize > 0 {
		size = fmt.Sprintf("%.1f MB", float64(f.Filesize)/(1024*1024))
	}

	return fmt.Sprintf("%s • %s • %s", quality, f.Ext, size)
}

// CollectionMember is one item within a collection resource
type CollectionMember struct {
	ID        string          `json:"id"`
	Locator   string          `json:"locator"`
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Formats   []FormatVariant `json:"formats"`
}

// Resource is the fetched descriptor for a single item or a collection.
// Formats is only populated for KindSingle and Members only for KindCollection.
type Resource struct {
	ID        string             `json:"id,omitempty"`
	Title     string             `json:"title"`
	Kind      ResourceKind       `json:"kind"`
	Locator   string             `json:"locator"`
	Thumbnail string             `json:"thumbnail,omitempty"`
	Formats   []FormatVariant    `json:"formats,omitempty"`
	Members   []CollectionMember `json:"members,omitempty"`
}

// NewSingleResource creates a single-item resource
func NewSingleResource(locator, title, thumbnail string, formats []FormatVariant) *Resource {
	return &Resource{
		Title:     title,
		Kind:      KindSingle,
		Locator:   locator,
		Thumbnail: thumbnail,
		Formats:   formats,
	}
}

// NewCollectionResource creates a collection resource
func NewCollectionResource(locator, title string, members []CollectionMember) *Resource {
	return &Resource{
		Title:   title,
		Kind:    KindCollection,
		Locator: locator,
		Members: members,
	}
}

// IsCollection checks if the resource is a collection
func (r *Resource) IsCollection() bool {
	return r.Kind == KindCollection
}

// Member finds a collection member by id
func (r *Resource) Member(id string) (*CollectionMember, bool) {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i], true
		}
	}
	return nil, false
}

// Validate checks the uniqueness invariants of a freshly mapped resource
func (r *Resource) Validate() error {
	switch r.Kind {
	case KindSingle:
		return validateFormatIDs(r.Formats)
	case KindCollection:
		seen := make(map[string]struct{}, len(r.Members))
		for _, m := range r.Members {
			if m.ID == "" {
				return fmt.Errorf("collection member without id: %q", m.Title)
			}
			if _, dup := seen[m.ID]; dup {
				return fmt.Errorf("duplicate collection member id: %s", m.ID)
			}
			seen[m.ID] = struct{}{}
			if err := validateFormatIDs(m.Formats); err != nil {
				return fmt.Errorf("member %s: %w", m.ID, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown resource kind: %q", r.Kind)
	}
}

func validateFormatIDs(formats []FormatVariant) error {
	seen := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		if _, dup := seen[f.FormatID]; dup {
			return fmt.Errorf("duplicate format id: %s", f.FormatID)
		}
		seen[f.FormatID] = struct{}{}
	}
	return nil
}

// IsRestricted checks whether a locator belongs to a platform where format choice is disabled
func IsRestricted(locator string, restrictedHosts []string) bool {
	if locator == "" {
		return false
	}
	lower := strings.ToLower(locator)
	for _, host := range restrictedHosts {
		if host != "" && strings.Contains(lower, strings.ToLower(host)) {
			return true
		}
	}
	return false
}
