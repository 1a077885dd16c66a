package qbufcore

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/qbuf/internal/qbufcore/backend"
	"github.com/dreamware/qbuf/internal/qbufcore/keycodec"
	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

// keyedRow is one row paired with its composite sort key, kept while a qbuf
// is still collecting_chunks and staying in memory (spec.md §3
// "inmem_staging").
type keyedRow struct {
	Key []byte
	Row qbuftypes.Row
}

// Options carries the per-qbuf construction parameters supplied at
// GetOrCreate time, overriding manager-wide defaults for a single qbuf.
//
// Zero value: an Options{} with every field at its zero value means "use
// the manager's defaults in full" — GetOrCreate never requires callers to
// fill in every field.
type Options struct {
	// ExpireAfter overrides the manager's default_expire_ms for this qbuf.
	// Zero means "use the manager default".
	ExpireAfter time.Duration
}

// QBuf is the in-memory state of one query buffer (spec.md §3 "QBuf
// entity").
//
// Ownership: every field is read and written exclusively by the owning
// Manager's actor goroutine. QBuf itself holds no lock and its methods are
// not safe for independent concurrent use — safety comes entirely from the
// Manager serializing every access, mirroring the teacher's shard.Shard
// fields that are safe for the same reason.
//
// Lifecycle: a QBuf is created in StatusCollectingChunks, moves to
// StatusServingFetches once BatchPut has delivered ChunksNeed chunks, then
// to StatusExpiring once idle past ExpireAfter (or abandoned past
// IncompleteRelease while still collecting), and finally to
// StatusExpired once the backend has acknowledged via
// Manager.BackendExpiryRequest. See spec.md §3's state diagram.
type QBuf struct {
	Ref    qbuftypes.QBufRef
	Status Status

	// Table is the display name's originating table, carried only for
	// DisplayName(); qbuf never interprets it.
	Table string

	Schema qbuftypes.Schema

	ExpireAfter time.Duration

	// backendHandle is non-nil once this qbuf has spilled to the shared KV
	// backend. Exactly one of (backendHandle != nil) / (staging non-empty
	// pre-spill) holds at a time (spec.md §3 invariant).
	backendHandle backend.Handle
	hasSpilled    bool

	// staging holds (key, row) pairs sorted by Key while collecting_chunks.
	// Once status becomes StatusServingFetches without ever spilling, Rows
	// is populated from staging and staging is cleared (spec.md §4.4 step 3
	// "strip keys and keep only rows").
	staging []keyedRow
	Rows    []qbuftypes.Row

	ChunksGot  int
	ChunksNeed int

	TotalRecords int
	SizeBytes    int64

	LastAccessed time.Time

	readyNotifier func()
	createdAt     time.Time
}

// newQBuf constructs a fresh QBuf in StatusCollectingChunks.
func newQBuf(ref qbuftypes.QBufRef, table string, schema qbuftypes.Schema, chunksNeed int, expireAfter time.Duration, now time.Time) *QBuf {
	return &QBuf{
		Ref:          ref,
		Status:       StatusCollectingChunks,
		Table:        table,
		Schema:       schema,
		ExpireAfter:  expireAfter,
		ChunksNeed:   chunksNeed,
		LastAccessed: now,
		createdAt:    now,
	}
}

// DisplayName formats the human-readable, log-only identifier of spec.md
// §6: "{table}_{select_cols}_{order_by_cols}__{timestamp}".
//
// Behavior: derives the string entirely from the qbuf's table name, schema,
// and creation time; never reads or affects Status, ChunksGot, or any other
// mutable field. It is never part of any on-disk key — BackendExpiryRequest
// and Scan address qbufs exclusively by QBufRef — so DisplayName is safe to
// change format in a future revision without any on-disk migration.
//
// Returns: a string suitable for log fields; not guaranteed unique across
// qbufs with an identical table/schema created within the same nanosecond,
// though that collision is immaterial since the string is never used as a
// lookup key.
//
// Thread-safety: like the rest of QBuf, safe only when called from the
// owning Manager's actor goroutine.
func (q *QBuf) DisplayName() string {
	selectCols := make([]string, len(q.Schema.Columns))
	for i, c := range q.Schema.Columns {
		selectCols[i] = c.Name
	}
	orderCols := make([]string, len(q.Schema.OrderBy))
	for i, f := range q.Schema.OrderBy {
		if f.Position < len(q.Schema.Columns) {
			orderCols[i] = q.Schema.Columns[f.Position].Name
		}
	}
	return fmt.Sprintf("%s_%v_%v__%d", q.Table, selectCols, orderCols, q.createdAt.UnixNano())
}

// canAffordInmem implements the §4.4/§9 "headroom remaining?" predicate: a
// bounded, monotonic check of the manager's tracked bytes against inmemMax.
// totalSize is the manager's aggregate size across all qbufs (already
// including this qbuf's own SizeBytes). Once hasSpilled is set it is never
// cleared, satisfying "once spilled, stay spilled" without needing
// process-wide memory introspection.
func (q *QBuf) canAffordInmem(totalSize, chunkBytes, inmemMax int64) bool {
	if q.hasSpilled {
		return false
	}
	return totalSize+chunkBytes <= inmemMax
}

// stageInMemory merges keyed rows into the sorted staging list, implementing
// spec.md §4.4 step 3 and §9's "sorted accumulator" note: insertion by
// binary search keeps the whole list ordered without a full re-sort, which
// the note explicitly permits as long as total order and stability hold.
func (q *QBuf) stageInMemory(keyed []keyedRow) {
	for _, kr := range keyed {
		idx, _ := slices.BinarySearchFunc(q.staging, kr, func(a, b keyedRow) int {
			return bytes.Compare(a.Key, b.Key)
		})
		q.staging = append(q.staging, keyedRow{})
		copy(q.staging[idx+1:], q.staging[idx:])
		q.staging[idx] = kr
	}
}

// finalizeStaging strips keys from the staging list once the qbuf reaches
// StatusServingFetches without ever spilling (spec.md §4.4 step 3, §3
// "keys stripped once serving_fetches if never spilled").
func (q *QBuf) finalizeStaging() {
	if q.hasSpilled {
		q.staging = nil
		return
	}
	q.Rows = make([]qbuftypes.Row, len(q.staging))
	for i, kr := range q.staging {
		q.Rows[i] = kr.Row
	}
	q.staging = nil
}

// markSpilled records that this qbuf has written at least one chunk to the
// shared backend, clears any in-memory staging, and latches hasSpilled so
// every subsequent chunk also goes to disk (spec.md §4.4 step 4 "once
// spilled, stay spilled").
func (q *QBuf) markSpilled(h backend.Handle) {
	q.backendHandle = h
	q.hasSpilled = true
	q.staging = nil
	q.Rows = nil
}

// fetchInMemory slices the finalized in-memory rows by offset/limit. limit
// < 0 means unlimited.
func (q *QBuf) fetchInMemory(offset, limit int) []qbuftypes.Row {
	if offset >= len(q.Rows) {
		return nil
	}
	end := len(q.Rows)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]qbuftypes.Row, end-offset)
	copy(out, q.Rows[offset:end])
	return out
}

// rowCodec is the package-wide row payload encoder, stateless and safe for
// concurrent use even though only the actor goroutine calls it.
var rowCodec = keycodec.NewRowCodec()
