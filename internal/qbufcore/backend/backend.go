// Package backend implements the KV Backend Adapter of spec.md §4.1: a thin
// contract over a single shared embedded ordered key-value store, isolating
// qbufs from each other via the bucket component of the composite key.
package backend

import "github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"

// Handle identifies an open backend store. It is opaque to callers; the
// concrete type behind it is implementation-defined (BadgerBackend returns
// a *badger.DB) and must be passed back unmodified to Close/Put/Scan.
type Handle interface{}

// KV is one row's composite key and encoded payload, ready to write.
type KV struct {
	Key   []byte
	Value []byte
}

// Row is one decoded scan result: the payload bytes as stored, still
// encoded (the caller decodes with keycodec.RowCodec).
type Row struct {
	Value []byte
}

// Backend is the contract spec.md §4.1 requires of the embedded ordered KV
// engine backing every spilled qbuf: open/close/destroy a single shared
// store, put rows under a bucket-scoped composite key, and scan a bucket's
// range with offset/limit.
//
// Implementations must guarantee:
//   - Exactly one store is open per Handle at a time; Open fails rather
//     than attaching to an already-open store.
//   - Keys within a bucket sort by plain byte-lexicographic comparison —
//     callers rely on this for ORDER BY correctness and never re-sort
//     after Scan.
//   - Put is atomic per row, not per call: a failure partway through a
//     multi-row Put may leave earlier rows committed (spec.md §4.6
//     tolerates this because chunk_id+row_idx makes a retried chunk
//     idempotent).
//
// Implementation notes: only one Backend instance serves every qbuf in the
// process (spec.md §4.1 "Only one backend instance serves all qbufs");
// isolation between qbufs comes entirely from the bucket argument, not
// from separate stores or separate Handles.
type Backend interface {
	// Open creates a store at path, failing if one already exists there
	// (spec.md §6 "error-if-exists=true"). Implementations configure a
	// ~10MiB write buffer, disable compression, and disable any
	// backend-native auto-expiry — the manager controls qbuf lifetime.
	//
	// Parameters:
	//   - path: directory the store lives in. Open creates it if absent; an
	//     existing directory that holds no store is accepted.
	//
	// Returns: a Handle usable with Close/Put/Scan, or an error if a store
	// already exists at path or the underlying engine fails to open.
	Open(path string) (Handle, error)

	// Close releases the handle without destroying on-disk data.
	//
	// Returns: nil on success, or an error from the underlying engine.
	// After Close, h must not be reused with Put/Scan.
	Close(h Handle) error

	// Destroy removes the store's on-disk files at path. The handle must
	// already be closed.
	//
	// Returns: nil on success (including if path does not exist), or an
	// error if removal fails partway through.
	Destroy(path string) error

	// Put writes rows, each already bucket-and-sort-key encoded by the
	// caller via keycodec.EncodeCompositeKey.
	//
	// Parameters:
	//   - bucket: the qbuf these rows belong to; used only for logging by
	//     most implementations, since the bucket is already encoded into
	//     each row's Key.
	//   - rows: may arrive in any order; the store keeps entries ordered by
	//     key regardless of write order.
	//
	// Returns: nil if every row was written, or an error on the first
	// failure — the caller then treats the whole chunk as rejected
	// (spec.md §4.1, §4.6) and must not advance its own chunk counters.
	Put(h Handle, bucket qbuftypes.QBufRef, rows []KV) error

	// Scan streams entries whose key lies in [BucketPrefix(bucket),
	// BucketUpperBound(bucket)), skipping the first offset results and
	// returning at most limit, in ascending key order.
	//
	// Parameters:
	//   - offset: rows to skip before the first returned row.
	//   - limit: maximum rows to return; limit < 0 means unlimited.
	//
	// Returns: the requested page (possibly empty, never nil-vs-empty
	// significant) and nil, or a nil slice and an error if the underlying
	// engine fails mid-scan.
	//
	// Performance: implementations are expected to seek directly to the
	// bucket prefix rather than scanning from the start of the store, but
	// skipping offset rows is expected to cost O(offset) regardless.
	Scan(h Handle, bucket qbuftypes.QBufRef, offset, limit int) ([]Row, error)
}
