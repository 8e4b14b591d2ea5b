package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
)

// DefaultAttributes creates attributes with every field populated. Useful
// for verifying that attributes round-trip through a backend.
func DefaultAttributes() store.Attributes {
	return store.Attributes{
		MIME:        "text/plain",
		Encoding:    "utf-8",
		Description: "a test record",
		Tag:         "alpha",
		Tag2:        "beta",
		Tag3:        "gamma",
		Data: map[string]string{
			"owner":  "tests",
			"source": "suite",
		},
	}
}

// mustCreate creates a record and fails the test on error.
func mustCreate(test *testing.T, s store.Store, name string, content []byte, attrs store.Attributes) *store.Record {
	test.Helper()

	rec, err := s.Create(context.Background(), name, content, attrs)
	require.NoError(test, err)
	require.NotNil(test, rec)
	return rec
}

// collectNames drains an iterator and returns the record names it yielded.
func collectNames(test *testing.T, it *store.MetadataIterator) []string {
	test.Helper()

	defer it.Close()
	names := []string{}
	for it.Next() {
		names = append(names, it.Metadata().Name)
	}
	require.NoError(test, it.Err())
	return names
}
