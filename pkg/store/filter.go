package store

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// Filter selects records for List and Find. The zero value matches
// everything. Predicates combine with AND; a filter selects, it does not
// sort, and no ordering is guaranteed across backends.
type Filter struct {
	// Prefix restricts results to names starting with the given string.
	Prefix string

	// NameGlob matches the whole name against a glob pattern with
	// path.Match semantics ('*' does not cross '/'). A malformed pattern
	// matches nothing.
	NameGlob string

	// NameRegexp matches the name against a compiled regular expression.
	NameRegexp *regexp.Regexp

	// MIME and Encoding match the record's descriptive fields exactly.
	MIME     string
	Encoding string

	// Tag matches when any of the three tag slots equals the value.
	Tag string

	// Tag1, Tag2 and Tag3 match a specific slot.
	Tag1 string
	Tag2 string
	Tag3 string

	// Size predicates on the content size in bytes. Nil disables a
	// predicate; SizeGreater and SizeLess are exclusive bounds.
	Size        *int64
	SizeGreater *int64
	SizeLess    *int64

	// ModifiedAfter and ModifiedBefore bound the modification time
	// (exclusive). A zero time disables the bound.
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
}

// Matches reports whether md satisfies every set predicate.
func (f Filter) Matches(md *Metadata) bool {
	if f.Prefix != "" && !strings.HasPrefix(md.Name, f.Prefix) {
		return false
	}
	if f.NameGlob != "" {
		ok, err := path.Match(f.NameGlob, md.Name)
		if err != nil || !ok {
			return false
		}
	}
	if f.NameRegexp != nil && !f.NameRegexp.MatchString(md.Name) {
		return false
	}
	if f.MIME != "" && md.MIME != f.MIME {
		return false
	}
	if f.Encoding != "" && md.Encoding != f.Encoding {
		return false
	}
	if f.Tag != "" && md.Tag != f.Tag && md.Tag2 != f.Tag && md.Tag3 != f.Tag {
		return false
	}
	if f.Tag1 != "" && md.Tag != f.Tag1 {
		return false
	}
	if f.Tag2 != "" && md.Tag2 != f.Tag2 {
		return false
	}
	if f.Tag3 != "" && md.Tag3 != f.Tag3 {
		return false
	}
	if f.Size != nil && md.Size != *f.Size {
		return false
	}
	if f.SizeGreater != nil && md.Size <= *f.SizeGreater {
		return false
	}
	if f.SizeLess != nil && md.Size >= *f.SizeLess {
		return false
	}
	if !f.ModifiedAfter.IsZero() && !md.Modified.After(f.ModifiedAfter) {
		return false
	}
	if !f.ModifiedBefore.IsZero() && !md.Modified.Before(f.ModifiedBefore) {
		return false
	}
	return true
}

// Int64 is a convenience for building size predicates inline:
//
//	store.Filter{SizeGreater: store.Int64(1024)}
func Int64(v int64) *int64 {
	return &v
}

// FindEntry is one row of the find projection: the searchable surface of a
// record without its payload. Content, Description and Data are excluded by
// contract — the projection exists so listings never pull payloads or
// free-form metadata off the backend.
type FindEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"` // Unix seconds
	MIME     string `json:"mime,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Tag2     string `json:"tag2,omitempty"`
	Tag3     string `json:"tag3,omitempty"`
}

// Project converts metadata into its find projection.
func Project(md *Metadata) FindEntry {
	return FindEntry{
		Name:     md.Name,
		Size:     md.Size,
		Modified: md.Modified.Unix(),
		MIME:     md.MIME,
		Encoding: md.Encoding,
		Tag:      md.Tag,
		Tag2:     md.Tag2,
		Tag3:     md.Tag3,
	}
}
