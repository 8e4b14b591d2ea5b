package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewETag(t *testing.T) {
	a := NewETag()
	b := NewETag()

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, `"`))
	assert.True(t, strings.HasSuffix(a, `"`))
	assert.Greater(t, len(a), 2)
}

func TestNextModified(t *testing.T) {
	first := NextModified(time.Time{})
	assert.False(t, first.IsZero())
	assert.Equal(t, time.UTC, first.Location())

	// A previous timestamp in the future still advances.
	future := time.Now().UTC().Add(time.Hour)
	next := NextModified(future)
	assert.True(t, next.After(future))
	assert.Equal(t, future.Add(time.Nanosecond), next)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("a.txt"))
	assert.NoError(t, ValidateName("nested/path/name with spaces"))
	assert.NoError(t, ValidateName(strings.Repeat("x", 1024)))

	assert.ErrorIs(t, ValidateName(""), ErrInvalidName)
	assert.ErrorIs(t, ValidateName("nul\x00byte"), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(strings.Repeat("x", 1025)), ErrInvalidName)
}

func TestRecordMetadata(t *testing.T) {
	rec := &Record{
		Name:     "a.txt",
		Content:  []byte("hello"),
		ETag:     `"abc"`,
		Modified: time.Now().UTC(),
		MIME:     "text/plain",
		Data:     map[string]string{"k": "v"},
	}

	md := rec.Metadata()
	assert.Equal(t, "a.txt", md.Name)
	assert.Equal(t, int64(5), md.Size)
	assert.Equal(t, `"abc"`, md.ETag)
	assert.Equal(t, "text/plain", md.MIME)

	// The metadata's data map is a copy.
	md.Data["k"] = "mutated"
	assert.Equal(t, "v", rec.Data["k"])
}

func TestRecordClone(t *testing.T) {
	rec := &Record{
		Name:    "a.txt",
		Content: []byte("hello"),
		Data:    map[string]string{"k": "v"},
	}

	clone := rec.Clone()
	clone.Content[0] = 'X'
	clone.Data["k"] = "mutated"

	assert.Equal(t, []byte("hello"), rec.Content)
	assert.Equal(t, "v", rec.Data["k"])
}

func TestUpdateApply(t *testing.T) {
	rec := &Record{
		MIME:        "text/plain",
		Encoding:    "utf-8",
		Description: "desc",
		Tag:         "a",
		Tag2:        "b",
		Tag3:        "c",
		Data:        map[string]string{"k": "v"},
	}

	// Nil pointers leave fields untouched.
	(Update{}).Apply(rec)
	assert.Equal(t, "text/plain", rec.MIME)
	assert.Equal(t, "v", rec.Data["k"])

	// Set pointers overwrite, including clearing with "".
	(Update{
		MIME:        String("application/json"),
		Description: String(""),
		Data:        map[string]string{"region": "eu"},
	}).Apply(rec)

	assert.Equal(t, "application/json", rec.MIME)
	assert.Empty(t, rec.Description)
	assert.Equal(t, "a", rec.Tag)
	require.Len(t, rec.Data, 1)
	assert.Equal(t, "eu", rec.Data["region"])

	// An empty non-nil map clears the data wholesale.
	(Update{Data: map[string]string{}}).Apply(rec)
	assert.Empty(t, rec.Data)
}
