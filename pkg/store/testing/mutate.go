package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
)

func (suite *StoreTestSuite) RunReplaceTests(test *testing.T) {
	test.Run("Replace_Success", suite.TestReplace_Success)
	test.Run("Replace_NotFound", suite.TestReplace_NotFound)
	test.Run("Replace_ETagMismatch", suite.TestReplace_ETagMismatch)
	test.Run("Replace_Unconditional", suite.TestReplace_Unconditional)
	test.Run("Replace_AdvancesModified", suite.TestReplace_AdvancesModified)
	test.Run("Replace_PartialAttributes", suite.TestReplace_PartialAttributes)
	test.Run("Replace_ConcurrentWriters", suite.TestReplace_ConcurrentWriters)
}

func (suite *StoreTestSuite) RunUpdateMetadataTests(test *testing.T) {
	test.Run("UpdateMetadata_Success", suite.TestUpdateMetadata_Success)
	test.Run("UpdateMetadata_NotFound", suite.TestUpdateMetadata_NotFound)
	test.Run("UpdateMetadata_ETagMismatch", suite.TestUpdateMetadata_ETagMismatch)
	test.Run("UpdateMetadata_KeepsContent", suite.TestUpdateMetadata_KeepsContent)
	test.Run("UpdateMetadata_ReplacesData", suite.TestUpdateMetadata_ReplacesData)
	test.Run("UpdateMetadata_ClearsField", suite.TestUpdateMetadata_ClearsField)
}

func (suite *StoreTestSuite) RunDeleteTests(test *testing.T) {
	test.Run("Delete_Success", suite.TestDelete_Success)
	test.Run("Delete_NotFound", suite.TestDelete_NotFound)
	test.Run("Delete_ETagMismatch", suite.TestDelete_ETagMismatch)
	test.Run("Delete_Conditional", suite.TestDelete_Conditional)
	test.Run("Delete_AllowsRecreate", suite.TestDelete_AllowsRecreate)
}

// TestReplace_Success verifies the hello/world lifecycle: new content,
// new etag, old etag rejected afterwards.
func (suite *StoreTestSuite) TestReplace_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	replaced, err := s.Replace(ctx, "a.txt", []byte("world"), created.ETag, store.Update{})
	require.NoError(test, err)
	assert.Equal(test, []byte("world"), replaced.Content)
	assert.NotEqual(test, created.ETag, replaced.ETag)

	// The superseded etag no longer matches.
	_, err = s.Replace(ctx, "a.txt", []byte("again"), created.ETag, store.Update{})
	assert.ErrorIs(test, err, store.ErrConflict)

	got, err := s.Get(ctx, "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("world"), got.Content)
	assert.Equal(test, replaced.ETag, got.ETag)
}

// TestReplace_NotFound verifies replacing a missing record fails.
func (suite *StoreTestSuite) TestReplace_NotFound(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	_, err := s.Replace(context.Background(), "missing.txt", []byte("x"), "", store.Update{})
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestReplace_ETagMismatch verifies a stale etag leaves the record intact.
func (suite *StoreTestSuite) TestReplace_ETagMismatch(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	_, err := s.Replace(ctx, "a.txt", []byte("world"), `"bogus"`, store.Update{})
	assert.ErrorIs(test, err, store.ErrConflict)

	got, err := s.Get(ctx, "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("hello"), got.Content)
	assert.Equal(test, created.ETag, got.ETag)
}

// TestReplace_Unconditional verifies an empty expected etag always wins.
func (suite *StoreTestSuite) TestReplace_Unconditional(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	replaced, err := s.Replace(ctx, "a.txt", []byte("world"), "", store.Update{})
	require.NoError(test, err)
	assert.Equal(test, []byte("world"), replaced.Content)
}

// TestReplace_AdvancesModified verifies the modified timestamp is strictly
// monotonic across versions of the same record.
func (suite *StoreTestSuite) TestReplace_AdvancesModified(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	rec := mustCreate(test, s, "a.txt", []byte("v0"), store.Attributes{})
	for i := 0; i < 3; i++ {
		next, err := s.Replace(ctx, "a.txt", []byte("v"), rec.ETag, store.Update{})
		require.NoError(test, err)
		assert.True(test, next.Modified.After(rec.Modified),
			"modified %v should advance past %v", next.Modified, rec.Modified)
		rec = next
	}
}

// TestReplace_PartialAttributes verifies unset update fields keep their
// previous values while set fields change.
func (suite *StoreTestSuite) TestReplace_PartialAttributes(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	replaced, err := s.Replace(ctx, "a.txt", []byte("world"), created.ETag, store.Update{
		Tag: store.String("delta"),
	})
	require.NoError(test, err)
	assert.Equal(test, "delta", replaced.Tag)
	assert.Equal(test, "beta", replaced.Tag2)
	assert.Equal(test, "text/plain", replaced.MIME)
	assert.Equal(test, "a test record", replaced.Description)
	assert.Equal(test, "tests", replaced.Data["owner"])
}

// TestReplace_ConcurrentWriters verifies exactly one of many racing writers
// holding the same etag wins; the rest observe a conflict.
func (suite *StoreTestSuite) TestReplace_ConcurrentWriters(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("v0"), store.Attributes{})

	const writers = 16
	var wg sync.WaitGroup
	wins := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Replace(ctx, "a.txt", []byte(fmt.Sprintf("v%d", n)), created.ETag, store.Update{})
			if err == nil {
				wins <- n
			} else {
				assert.ErrorIs(test, err, store.ErrConflict)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for n := range wins {
		winners = append(winners, n)
	}
	require.Len(test, winners, 1)

	got, err := s.Get(ctx, "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte(fmt.Sprintf("v%d", winners[0])), got.Content)
}

// TestUpdateMetadata_Success verifies metadata changes without content.
func (suite *StoreTestSuite) TestUpdateMetadata_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	updated, err := s.UpdateMetadata(ctx, "a.txt", created.ETag, store.Update{
		Description: store.String("greeting"),
		Tag:         store.String("docs"),
	})
	require.NoError(test, err)
	assert.Equal(test, "greeting", updated.Description)
	assert.Equal(test, "docs", updated.Tag)
	assert.NotEqual(test, created.ETag, updated.ETag)
	assert.True(test, updated.Modified.After(created.Modified))
}

// TestUpdateMetadata_NotFound verifies updating a missing record fails.
func (suite *StoreTestSuite) TestUpdateMetadata_NotFound(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	_, err := s.UpdateMetadata(context.Background(), "missing.txt", "", store.Update{
		Tag: store.String("x"),
	})
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestUpdateMetadata_ETagMismatch verifies a stale etag is rejected.
func (suite *StoreTestSuite) TestUpdateMetadata_ETagMismatch(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	_, err := s.UpdateMetadata(context.Background(), "a.txt", `"bogus"`, store.Update{
		Tag: store.String("x"),
	})
	assert.ErrorIs(test, err, store.ErrConflict)
}

// TestUpdateMetadata_KeepsContent verifies the content survives a
// metadata-only update while the etag still changes.
func (suite *StoreTestSuite) TestUpdateMetadata_KeepsContent(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	updated, err := s.UpdateMetadata(ctx, "a.txt", created.ETag, store.Update{
		MIME: store.String("text/markdown"),
	})
	require.NoError(test, err)
	assert.NotEqual(test, created.ETag, updated.ETag)

	got, err := s.Get(ctx, "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("hello"), got.Content)
	assert.Equal(test, "text/markdown", got.MIME)
}

// TestUpdateMetadata_ReplacesData verifies the data map is replaced
// wholesale, not merged.
func (suite *StoreTestSuite) TestUpdateMetadata_ReplacesData(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	updated, err := s.UpdateMetadata(ctx, "a.txt", created.ETag, store.Update{
		Data: map[string]string{"region": "eu"},
	})
	require.NoError(test, err)
	assert.Equal(test, map[string]string{"region": "eu"}, updated.Data)

	// A nil Data leaves the map alone.
	final, err := s.UpdateMetadata(ctx, "a.txt", updated.ETag, store.Update{
		Tag: store.String("x"),
	})
	require.NoError(test, err)
	assert.Equal(test, map[string]string{"region": "eu"}, final.Data)
}

// TestUpdateMetadata_ClearsField verifies a pointer to the empty string
// clears a field, as opposed to a nil pointer which keeps it.
func (suite *StoreTestSuite) TestUpdateMetadata_ClearsField(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	updated, err := s.UpdateMetadata(ctx, "a.txt", created.ETag, store.Update{
		Description: store.String(""),
	})
	require.NoError(test, err)
	assert.Empty(test, updated.Description)
	assert.Equal(test, "alpha", updated.Tag)
}

// TestDelete_Success verifies a deleted record is gone.
func (suite *StoreTestSuite) TestDelete_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	require.NoError(test, s.Delete(ctx, "a.txt", ""))

	_, err := s.Get(ctx, "a.txt")
	assert.ErrorIs(test, err, store.ErrNotFound)
	_, err = s.GetMetadata(ctx, "a.txt")
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestDelete_NotFound verifies deleting a missing record fails.
func (suite *StoreTestSuite) TestDelete_NotFound(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	err := s.Delete(context.Background(), "missing.txt", "")
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestDelete_ETagMismatch verifies a stale etag leaves the record in place.
func (suite *StoreTestSuite) TestDelete_ETagMismatch(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	err := s.Delete(ctx, "a.txt", `"bogus"`)
	assert.ErrorIs(test, err, store.ErrConflict)

	_, err = s.Get(ctx, "a.txt")
	assert.NoError(test, err)
}

// TestDelete_Conditional verifies deletion with the current etag succeeds.
func (suite *StoreTestSuite) TestDelete_Conditional(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	require.NoError(test, s.Delete(ctx, "a.txt", created.ETag))

	_, err := s.Get(ctx, "a.txt")
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestDelete_AllowsRecreate verifies a name can be reused after deletion
// and the new record carries a fresh etag.
func (suite *StoreTestSuite) TestDelete_AllowsRecreate(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	first := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(test, s.Delete(ctx, "a.txt", ""))

	second := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})
	assert.NotEqual(test, first.ETag, second.ETag)
}
