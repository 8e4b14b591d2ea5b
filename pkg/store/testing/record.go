package testing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
)

func (suite *StoreTestSuite) RunCreateTests(test *testing.T) {
	test.Run("Create_Success", suite.TestCreate_Success)
	test.Run("Create_EmptyContent", suite.TestCreate_EmptyContent)
	test.Run("Create_AlreadyExists", suite.TestCreate_AlreadyExists)
	test.Run("Create_InvalidName", suite.TestCreate_InvalidName)
	test.Run("Create_QuotedETag", suite.TestCreate_QuotedETag)
}

func (suite *StoreTestSuite) RunGetTests(test *testing.T) {
	test.Run("Get_Success", suite.TestGet_Success)
	test.Run("Get_NotFound", suite.TestGet_NotFound)
	test.Run("GetMetadata_Success", suite.TestGetMetadata_Success)
	test.Run("GetMetadata_NotFound", suite.TestGetMetadata_NotFound)
	test.Run("GetMetadata_ExcludesContent", suite.TestGetMetadata_ExcludesContent)
}

// TestCreate_Success verifies a record comes back fully populated.
func (suite *StoreTestSuite) TestCreate_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	rec := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	assert.Equal(test, "a.txt", rec.Name)
	assert.Equal(test, []byte("hello"), rec.Content)
	assert.Equal(test, "text/plain", rec.MIME)
	assert.Equal(test, "utf-8", rec.Encoding)
	assert.Equal(test, "a test record", rec.Description)
	assert.Equal(test, "alpha", rec.Tag)
	assert.Equal(test, "beta", rec.Tag2)
	assert.Equal(test, "gamma", rec.Tag3)
	assert.Equal(test, "tests", rec.Data["owner"])
	assert.NotEmpty(test, rec.ETag)
	assert.False(test, rec.Modified.IsZero())
}

// TestCreate_EmptyContent verifies zero-byte records are allowed.
func (suite *StoreTestSuite) TestCreate_EmptyContent(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	mustCreate(test, s, "empty.txt", []byte{}, store.Attributes{})

	md, err := s.GetMetadata(context.Background(), "empty.txt")
	require.NoError(test, err)
	assert.Equal(test, int64(0), md.Size)
}

// TestCreate_AlreadyExists verifies creating over an existing name fails
// and leaves the original untouched.
func (suite *StoreTestSuite) TestCreate_AlreadyExists(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	original := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})

	_, err := s.Create(ctx, "a.txt", []byte("other"), store.Attributes{})
	assert.ErrorIs(test, err, store.ErrAlreadyExists)

	got, err := s.Get(ctx, "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("hello"), got.Content)
	assert.Equal(test, original.ETag, got.ETag)
}

// TestCreate_InvalidName verifies name validation.
func (suite *StoreTestSuite) TestCreate_InvalidName(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Create(ctx, "", []byte("x"), store.Attributes{})
	assert.ErrorIs(test, err, store.ErrInvalidName)

	_, err = s.Create(ctx, "bad\x00name", []byte("x"), store.Attributes{})
	assert.ErrorIs(test, err, store.ErrInvalidName)

	_, err = s.Create(ctx, strings.Repeat("x", 2000), []byte("x"), store.Attributes{})
	assert.ErrorIs(test, err, store.ErrInvalidName)
}

// TestCreate_QuotedETag verifies etags are surrounded by double quotes.
func (suite *StoreTestSuite) TestCreate_QuotedETag(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	rec := mustCreate(test, s, "a.txt", []byte("hello"), store.Attributes{})
	assert.True(test, strings.HasPrefix(rec.ETag, `"`))
	assert.True(test, strings.HasSuffix(rec.ETag, `"`))
}

// TestGet_Success verifies content and metadata round-trip.
func (suite *StoreTestSuite) TestGet_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	got, err := s.Get(context.Background(), "a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("hello"), got.Content)
	assert.Equal(test, created.ETag, got.ETag)
	assert.Equal(test, created.Data, got.Data)
}

// TestGet_NotFound verifies the missing-record error.
func (suite *StoreTestSuite) TestGet_NotFound(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	_, err := s.Get(context.Background(), "missing.txt")
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestGetMetadata_Success verifies metadata fields including size.
func (suite *StoreTestSuite) TestGetMetadata_Success(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	md, err := s.GetMetadata(context.Background(), "a.txt")
	require.NoError(test, err)
	assert.Equal(test, "a.txt", md.Name)
	assert.Equal(test, int64(5), md.Size)
	assert.Equal(test, created.ETag, md.ETag)
	assert.Equal(test, "text/plain", md.MIME)
	assert.Equal(test, "tests", md.Data["owner"])
}

// TestGetMetadata_NotFound verifies the missing-record error.
func (suite *StoreTestSuite) TestGetMetadata_NotFound(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	_, err := s.GetMetadata(context.Background(), "missing.txt")
	assert.ErrorIs(test, err, store.ErrNotFound)
}

// TestGetMetadata_ExcludesContent verifies large content does not leak
// into the metadata path: the reported size must match without the call
// returning the bytes themselves.
func (suite *StoreTestSuite) TestGetMetadata_ExcludesContent(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	mustCreate(test, s, "big.bin", make([]byte, 4096), store.Attributes{})

	md, err := s.GetMetadata(context.Background(), "big.bin")
	require.NoError(test, err)
	assert.Equal(test, int64(4096), md.Size)
}
