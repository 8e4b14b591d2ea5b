package store

import "errors"

// Standard record store errors.
//
// These sentinels give every backend a consistent way to report the failure
// modes of the storage contract. Callers match them with errors.Is; backends
// wrap them with context:
//
//	if !found {
//	    return fmt.Errorf("record %q: %w", name, store.ErrNotFound)
//	}
//
// An external API layer maps them onto response codes (ErrNotFound → 404,
// ErrAlreadyExists → 409, ErrConflict → 412, ErrUnavailable → 503).
var (
	// ErrNotFound indicates the operation targeted a name with no current
	// record (or, for GetMeta callers that care, a missing meta key).
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates Create targeted an occupied name. The
	// existing record is left untouched.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrConflict indicates the caller supplied an expected etag that no
	// longer matches the stored one. The mutation was rejected and the
	// record is unchanged; callers should re-read and retry.
	ErrConflict = errors.New("etag mismatch")

	// ErrInvalidName indicates the record name is empty, too long, or
	// contains bytes the backends cannot store safely.
	ErrInvalidName = errors.New("invalid record name")

	// ErrUnavailable indicates a backing store I/O failure. The operation
	// was not applied (or not observably applied); the core never retries.
	ErrUnavailable = errors.New("backing store unavailable")
)
