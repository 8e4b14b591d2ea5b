package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxNameLength bounds record names. Names are primary keys in every backend
// (Badger keys, S3 object keys), and S3 caps keys at 1024 bytes.
const maxNameLength = 1024

// Record is the unit of storage: a named, opaque content payload plus its
// integrity and classification metadata.
//
// Name is immutable once chosen; a rename is delete+recreate at a higher
// layer. Content is required — a record with no content cannot exist, so
// content can only be cleared by deleting the record.
type Record struct {
	// Name is the unique identifier (primary key).
	Name string `json:"name"`

	// Content is the opaque payload. Size is bounded only by the backend.
	Content []byte `json:"content"`

	// ETag is an opaque version token. Every successful mutation of the
	// record (content or metadata) produces a fresh value.
	ETag string `json:"etag"`

	// Modified is the time of the last mutation, UTC, monotonically
	// non-decreasing for the lifetime of the record.
	Modified time.Time `json:"modified"`

	// MIME and Encoding describe how consumers should interpret Content.
	// They are never validated against the content itself.
	MIME     string `json:"mime,omitempty"`
	Encoding string `json:"encoding,omitempty"`

	// Description is free-form text.
	Description string `json:"description,omitempty"`

	// Tag, Tag2 and Tag3 are independently settable classification slots
	// used for filtering.
	Tag  string `json:"tag,omitempty"`
	Tag2 string `json:"tag2,omitempty"`
	Tag3 string `json:"tag3,omitempty"`

	// Data holds caller-defined extension attributes. The store never
	// interprets them and never exposes them through the find projection.
	Data map[string]string `json:"data,omitempty"`
}

// Metadata is a Record without its content, plus the content size. It is what
// List returns and what lightweight callers fetch when the payload would be
// wasted.
type Metadata struct {
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	ETag        string            `json:"etag"`
	Modified    time.Time         `json:"modified"`
	MIME        string            `json:"mime,omitempty"`
	Encoding    string            `json:"encoding,omitempty"`
	Description string            `json:"description,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Tag2        string            `json:"tag2,omitempty"`
	Tag3        string            `json:"tag3,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// Metadata returns the record's metadata projection. The Data map is copied
// so callers cannot mutate the record through it.
func (r *Record) Metadata() *Metadata {
	return &Metadata{
		Name:        r.Name,
		Size:        int64(len(r.Content)),
		ETag:        r.ETag,
		Modified:    r.Modified,
		MIME:        r.MIME,
		Encoding:    r.Encoding,
		Description: r.Description,
		Tag:         r.Tag,
		Tag2:        r.Tag2,
		Tag3:        r.Tag3,
		Data:        copyData(r.Data),
	}
}

// Clone returns a deep copy of the record. Backends hand out clones so a
// caller can never reach into stored state.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Content = append([]byte(nil), r.Content...)
	clone.Data = copyData(r.Data)
	return &clone
}

// Attributes carries the optional descriptive fields supplied at creation.
// Zero values mean "unset".
type Attributes struct {
	MIME        string
	Encoding    string
	Description string
	Tag         string
	Tag2        string
	Tag3        string
	Data        map[string]string
}

// Update describes a partial metadata update. A nil field is left unchanged;
// a pointer to the empty string clears the field. A non-nil Data map replaces
// the extension attributes wholesale (an empty non-nil map clears them).
type Update struct {
	MIME        *string
	Encoding    *string
	Description *string
	Tag         *string
	Tag2        *string
	Tag3        *string
	Data        map[string]string
}

// Apply mutates r with the supplied fields. Content, ETag and Modified are
// untouched; the caller is responsible for versioning.
func (u Update) Apply(r *Record) {
	if u.MIME != nil {
		r.MIME = *u.MIME
	}
	if u.Encoding != nil {
		r.Encoding = *u.Encoding
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Tag != nil {
		r.Tag = *u.Tag
	}
	if u.Tag2 != nil {
		r.Tag2 = *u.Tag2
	}
	if u.Tag3 != nil {
		r.Tag3 = *u.Tag3
	}
	if u.Data != nil {
		r.Data = copyData(u.Data)
	}
}

// String is a convenience for building Update fields inline:
//
//	store.Update{MIME: store.String("text/plain")}
func String(s string) *string {
	return &s
}

// NewETag generates a fresh opaque version token.
//
// The token is a quoted random UUID rather than a content hash: metadata-only
// updates must also change the etag, and re-putting identical content must
// not reproduce the previous token.
func NewETag() string {
	return `"` + uuid.NewString() + `"`
}

// NextModified returns the modification timestamp for a mutation of a record
// last touched at prev. The result never goes backwards even if the wall
// clock does.
func NextModified(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// ValidateName checks that name is usable as a primary key in every backend.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	if strings.ContainsRune(name, '\x00') {
		return ErrInvalidName
	}
	return nil
}

func copyData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
