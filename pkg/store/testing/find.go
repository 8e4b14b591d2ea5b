package testing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
)

func (suite *StoreTestSuite) RunListTests(test *testing.T) {
	test.Run("List_Empty", suite.TestList_Empty)
	test.Run("List_All", suite.TestList_All)
	test.Run("List_Prefix", suite.TestList_Prefix)
	test.Run("List_TagAnySlot", suite.TestList_TagAnySlot)
	test.Run("List_NameGlob", suite.TestList_NameGlob)
	test.Run("List_SizeBounds", suite.TestList_SizeBounds)
	test.Run("List_CombinedPredicates", suite.TestList_CombinedPredicates)
	test.Run("List_ModifiedBounds", suite.TestList_ModifiedBounds)
	test.Run("List_EarlyClose", suite.TestList_EarlyClose)
}

func (suite *StoreTestSuite) RunFindTests(test *testing.T) {
	test.Run("Find_Projection", suite.TestFind_Projection)
	test.Run("Find_Filtered", suite.TestFind_Filtered)
	test.Run("Find_Empty", suite.TestFind_Empty)
}

// seedRecords creates a small population exercising every filter axis.
func (suite *StoreTestSuite) seedRecords(test *testing.T, s store.Store) {
	test.Helper()

	mustCreate(test, s, "docs/readme.md", []byte("# hi"), store.Attributes{
		MIME: "text/markdown", Tag: "docs",
	})
	mustCreate(test, s, "docs/guide.md", []byte("guide"), store.Attributes{
		MIME: "text/markdown", Tag2: "docs",
	})
	mustCreate(test, s, "img/logo.png", []byte{0x89, 0x50}, store.Attributes{
		MIME: "image/png", Tag: "assets",
	})
	mustCreate(test, s, "img/icon.png", []byte{0x89, 0x50}, store.Attributes{
		MIME: "image/png", Tag3: "docs",
	})
}

// TestList_Empty verifies an empty store yields no entries and no error.
func (suite *StoreTestSuite) TestList_Empty(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	names := collectNames(test, s.List(context.Background(), store.Filter{}))
	assert.Empty(test, names)
}

// TestList_All verifies an empty filter matches every record.
func (suite *StoreTestSuite) TestList_All(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	names := collectNames(test, s.List(context.Background(), store.Filter{}))
	sort.Strings(names)
	assert.Equal(test, []string{"docs/guide.md", "docs/readme.md", "img/icon.png", "img/logo.png"}, names)
}

// TestList_Prefix verifies name prefix filtering.
func (suite *StoreTestSuite) TestList_Prefix(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	names := collectNames(test, s.List(context.Background(), store.Filter{Prefix: "docs/"}))
	sort.Strings(names)
	assert.Equal(test, []string{"docs/guide.md", "docs/readme.md"}, names)
}

// TestList_TagAnySlot verifies the tag predicate matches any of the three
// tag slots, while slot predicates match only their own.
func (suite *StoreTestSuite) TestList_TagAnySlot(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)
	ctx := context.Background()

	names := collectNames(test, s.List(ctx, store.Filter{Tag: "docs"}))
	sort.Strings(names)
	assert.Equal(test, []string{"docs/guide.md", "docs/readme.md", "img/icon.png"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{Tag1: "docs"}))
	assert.Equal(test, []string{"docs/readme.md"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{Tag3: "docs"}))
	assert.Equal(test, []string{"img/icon.png"}, names)
}

// TestList_NameGlob verifies glob filtering, including that '*' does not
// cross a '/' segment.
func (suite *StoreTestSuite) TestList_NameGlob(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)
	ctx := context.Background()

	names := collectNames(test, s.List(ctx, store.Filter{NameGlob: "docs/*.md"}))
	sort.Strings(names)
	assert.Equal(test, []string{"docs/guide.md", "docs/readme.md"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{NameGlob: "*/logo.*"}))
	assert.Equal(test, []string{"img/logo.png"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{NameGlob: "*"}))
	assert.Empty(test, names)
}

// TestList_SizeBounds verifies the size predicates with exclusive bounds.
func (suite *StoreTestSuite) TestList_SizeBounds(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	mustCreate(test, s, "small.bin", make([]byte, 10), store.Attributes{})
	mustCreate(test, s, "medium.bin", make([]byte, 100), store.Attributes{})
	mustCreate(test, s, "large.bin", make([]byte, 1000), store.Attributes{})

	names := collectNames(test, s.List(ctx, store.Filter{Size: store.Int64(100)}))
	assert.Equal(test, []string{"medium.bin"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{SizeGreater: store.Int64(100)}))
	assert.Equal(test, []string{"large.bin"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{SizeLess: store.Int64(100)}))
	assert.Equal(test, []string{"small.bin"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{
		SizeGreater: store.Int64(10),
		SizeLess:    store.Int64(1000),
	}))
	assert.Equal(test, []string{"medium.bin"}, names)
}

// TestList_CombinedPredicates verifies predicates AND together.
func (suite *StoreTestSuite) TestList_CombinedPredicates(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	names := collectNames(test, s.List(context.Background(), store.Filter{
		Prefix: "img/",
		MIME:   "image/png",
		Tag:    "docs",
	}))
	assert.Equal(test, []string{"img/icon.png"}, names)
}

// TestList_ModifiedBounds verifies the exclusive time bounds.
func (suite *StoreTestSuite) TestList_ModifiedBounds(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	ctx := context.Background()

	first := mustCreate(test, s, "a.txt", []byte("a"), store.Attributes{})
	// Coarse clocks could stamp both records identically.
	time.Sleep(2 * time.Millisecond)
	second := mustCreate(test, s, "b.txt", []byte("b"), store.Attributes{})

	names := collectNames(test, s.List(ctx, store.Filter{ModifiedAfter: first.Modified}))
	assert.Equal(test, []string{"b.txt"}, names)

	names = collectNames(test, s.List(ctx, store.Filter{ModifiedBefore: second.Modified}))
	assert.Equal(test, []string{"a.txt"}, names)

	// Bounds are exclusive: a record's own timestamp matches neither side.
	names = collectNames(test, s.List(ctx, store.Filter{
		ModifiedAfter:  first.Modified,
		ModifiedBefore: second.Modified,
	}))
	assert.Empty(test, names)
}

// TestList_EarlyClose verifies closing an iterator mid-stream does not leak
// the producing goroutine or error out.
func (suite *StoreTestSuite) TestList_EarlyClose(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	it := s.List(context.Background(), store.Filter{})
	require.True(test, it.Next())
	require.NoError(test, it.Close())
	assert.False(test, it.Next())
}

// TestFind_Projection verifies the projection carries searchable fields
// only: no content, description or data.
func (suite *StoreTestSuite) TestFind_Projection(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	created := mustCreate(test, s, "a.txt", []byte("hello"), DefaultAttributes())

	entries, err := s.Find(context.Background(), store.Filter{})
	require.NoError(test, err)
	require.Len(test, entries, 1)

	entry := entries[0]
	assert.Equal(test, "a.txt", entry.Name)
	assert.Equal(test, int64(5), entry.Size)
	assert.Equal(test, created.Modified.Unix(), entry.Modified)
	assert.Equal(test, "text/plain", entry.MIME)
	assert.Equal(test, "utf-8", entry.Encoding)
	assert.Equal(test, "alpha", entry.Tag)
	assert.Equal(test, "beta", entry.Tag2)
	assert.Equal(test, "gamma", entry.Tag3)
}

// TestFind_Filtered verifies filters apply to the projection.
func (suite *StoreTestSuite) TestFind_Filtered(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	entries, err := s.Find(context.Background(), store.Filter{MIME: "text/markdown"})
	require.NoError(test, err)
	require.Len(test, entries, 2)
	for _, entry := range entries {
		assert.Equal(test, "text/markdown", entry.MIME)
	}
}

// TestFind_Empty verifies an unmatched filter yields an empty slice.
func (suite *StoreTestSuite) TestFind_Empty(test *testing.T) {
	s := suite.NewStore()
	defer s.Close()
	suite.seedRecords(test, s)

	entries, err := s.Find(context.Background(), store.Filter{Prefix: "nope/"})
	require.NoError(test, err)
	assert.Empty(test, entries)
}
