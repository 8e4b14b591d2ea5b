package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunMetaTests(test *testing.T) {
	test.Run("Meta_SetGet", suite.TestMeta_SetGet)
	test.Run("Meta_MissingKey", suite.TestMeta_MissingKey)
	test.Run("Meta_Overwrite", suite.TestMeta_Overwrite)
	test.Run("Meta_IndependentOfRecords", suite.TestMeta_IndependentOfRecords)
}

func (suite *StoreTestSuite) RunHealthcheckTests(test *testing.T) {
	test.Run("Check_Healthy", suite.TestCheck_Healthy)
}

// TestMeta_SetGet verifies the meta table round-trips values.
func (suite *StoreTestSuite) TestMeta_SetGet(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(test, s.SetMeta(ctx, "owner", "platform"))

	v, err := s.GetMeta(ctx, "owner")
	require.NoError(test, err)
	assert.Equal(test, "platform", v)
}

// TestMeta_MissingKey verifies a missing key reads as the empty string,
// not an error.
func (suite *StoreTestSuite) TestMeta_MissingKey(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	v, err := s.GetMeta(context.Background(), "never-set")
	require.NoError(test, err)
	assert.Equal(test, "", v)
}

// TestMeta_Overwrite verifies the last write wins.
func (suite *StoreTestSuite) TestMeta_Overwrite(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(test, s.SetMeta(ctx, "k", "v1"))
	require.NoError(test, s.SetMeta(ctx, "k", "v2"))

	v, err := s.GetMeta(ctx, "k")
	require.NoError(test, err)
	assert.Equal(test, "v2", v)
}

// TestMeta_IndependentOfRecords verifies the meta table and the record
// namespace never collide.
func (suite *StoreTestSuite) TestMeta_IndependentOfRecords(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	mustCreate(test, s, "shared-name", []byte("record"), DefaultAttributes())
	require.NoError(test, s.SetMeta(ctx, "shared-name", "meta-value"))

	rec, err := s.Get(ctx, "shared-name")
	require.NoError(test, err)
	assert.Equal(test, []byte("record"), rec.Content)

	v, err := s.GetMeta(ctx, "shared-name")
	require.NoError(test, err)
	assert.Equal(test, "meta-value", v)

	require.NoError(test, s.Delete(ctx, "shared-name", ""))
	v, err = s.GetMeta(ctx, "shared-name")
	require.NoError(test, err)
	assert.Equal(test, "meta-value", v)
}

// TestCheck_Healthy verifies a freshly opened store reports healthy.
func (suite *StoreTestSuite) TestCheck_Healthy(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	assert.NoError(test, s.Check(context.Background()))
}
