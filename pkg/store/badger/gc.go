package badger

import (
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/blobvault/blobvault/internal/logger"
)

// runValueLogGC periodically reclaims space from Badger's value log.
//
// Badger never rewrites value-log files on its own; deleted and replaced
// record content stays on disk until a GC pass rewrites the file. This loop
// is storage hygiene only — it never touches live records and has no record
// lifecycle semantics.
func (s *BadgerStore) runValueLogGC(interval time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			s.collectValueLog()
		}
	}
}

// collectValueLog runs GC passes until Badger reports nothing left to
// rewrite. The 0.5 discard ratio only rewrites files that are at least half
// garbage, keeping write amplification bounded.
func (s *BadgerStore) collectValueLog() {
	for {
		err := s.db.RunValueLogGC(0.5)
		switch err {
		case nil:
			continue
		case badger.ErrNoRewrite:
			return
		default:
			logger.Warn("badger value log GC: %v", err)
			return
		}
	}
}
