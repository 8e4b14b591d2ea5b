package badger

// Database key namespace
// ======================
//
// BadgerDB is a flat key-value store, so the two logical tables of the
// record store live under prefixed keys:
//
//	Data Type     Prefix  Key Format       Value
//	-------------------------------------------------------------
//	Records       "r:"    r:<name>         recordEnvelope (JSON)
//	Meta entries  "m:"    m:<key>          raw string bytes
//
// Record names are the primary key, so a point lookup is O(1) and a full
// listing is a single prefix scan over "r:". Prefix iteration also yields
// names in lexicographic order, which is the (unguaranteed) order List
// happens to produce on this backend.
//
// Meta entries are singleton configuration rows (schema version and the
// like), written at initialization and rarely after.

const (
	// prefixRecord is the key prefix for record envelopes.
	prefixRecord = "r:"

	// prefixMeta is the key prefix for meta (configuration) entries.
	prefixMeta = "m:"
)

// keyRecord builds the database key for a record.
func keyRecord(name string) []byte {
	return []byte(prefixRecord + name)
}

// keyMeta builds the database key for a meta entry.
func keyMeta(key string) []byte {
	return []byte(prefixMeta + key)
}
