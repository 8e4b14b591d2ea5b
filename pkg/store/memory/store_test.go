package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
	storetesting "github.com/blobvault/blobvault/pkg/store/testing"
)

// TestMemoryStore runs the complete Store contract suite against the
// in-memory implementation.
func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Store {
			return NewMemoryStore()
		},
	}

	suite.Run(t)
}

// TestMemoryStore_IsolatesCallers verifies callers cannot mutate stored
// state through returned records or the content slice they passed in.
func TestMemoryStore_IsolatesCallers(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	content := []byte("hello")
	created, err := s.Create(ctx, "a.txt", content, store.Attributes{
		Data: map[string]string{"k": "v"},
	})
	require.NoError(t, err)

	content[0] = 'X'
	created.Content[1] = 'Y'
	created.Data["k"] = "mutated"

	got, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)
	assert.Equal(t, "v", got.Data["k"])
}

// TestMemoryStore_UseAfterClose verifies operations fail once closed.
func TestMemoryStore_UseAfterClose(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "a.txt")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
