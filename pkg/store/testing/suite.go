// Package testing provides a reusable contract test suite for Store
// implementations.
package testing

import (
	"testing"

	"github.com/blobvault/blobvault/pkg/store"
)

// StoreTestSuite is a comprehensive test suite for Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across different backends (memory, badger, s3).
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Store instance
	// for each test. This ensures test isolation.
	NewStore func() store.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("Create", suite.RunCreateTests)
	test.Run("Get", suite.RunGetTests)
	test.Run("Replace", suite.RunReplaceTests)
	test.Run("UpdateMetadata", suite.RunUpdateMetadataTests)
	test.Run("Delete", suite.RunDeleteTests)
	test.Run("List", suite.RunListTests)
	test.Run("Find", suite.RunFindTests)
	test.Run("Meta", suite.RunMetaTests)
	test.Run("Healthcheck", suite.RunHealthcheckTests)
}
