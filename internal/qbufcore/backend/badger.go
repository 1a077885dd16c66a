package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/dreamware/qbuf/internal/qbufcore/keycodec"
	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

// writeBufferSize is the ~10 MiB write buffer required by spec.md §6.
const writeBufferSize = 10 << 20

// manifestFile is badger's own on-disk marker of an existing store, written
// the first time a store is opened at a given path. RootPath itself is
// created unconditionally by the manager before Open ever runs (and by
// badger.Open on first use), so checking for the directory would reject
// every Open call; checking for this file instead only rejects a genuine
// pre-existing store.
const manifestFile = "MANIFEST"

// BadgerBackend is the Backend implementation backed by
// github.com/dgraph-io/badger/v4, an embedded ordered key-value store. It
// is the concrete "embedded ordered KV engine" spec.md §1/§4.1 treats as a
// black box.
//
// BadgerBackend carries no state of its own; every method takes the
// Handle it needs as an argument, so a single BadgerBackend value may be
// shared across any number of open stores (though spec.md §4.1 only ever
// opens one per process).
type BadgerBackend struct{}

// NewBadgerBackend returns a ready-to-use BadgerBackend.
func NewBadgerBackend() *BadgerBackend { return &BadgerBackend{} }

// Open implements Backend.
//
// Behavior: checks for badger's own on-disk store marker (a MANIFEST file)
// inside path before attempting to open, so that a freshly created but
// still-empty directory is not mistaken for an existing store. Configures
// a ~10MiB value-log file size, disables compression, and disables
// badger's internal logger.
//
// Thread-safety: safe to call concurrently for different paths; opening
// the same path twice concurrently is not supported by badger and will
// race on the MANIFEST check.
func (BadgerBackend) Open(path string) (Handle, error) {
	if _, err := os.Stat(filepath.Join(path, manifestFile)); err == nil {
		return nil, fmt.Errorf("backend: store already exists at %s", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("backend: stat %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).
		WithValueLogFileSize(writeBufferSize).
		WithCompression(options.None).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", path, err)
	}
	return db, nil
}

// Close implements Backend.
//
// Returns: an error if h is not a handle this backend opened, or whatever
// *badger.DB.Close itself returns (e.g. pending writes failing to flush).
func (BadgerBackend) Close(h Handle) error {
	db, ok := h.(*badger.DB)
	if !ok {
		return fmt.Errorf("backend: invalid handle")
	}
	return db.Close()
}

// Destroy implements Backend.
//
// Returns: nil whether or not path existed; os.RemoveAll already treats a
// missing path as success.
func (BadgerBackend) Destroy(path string) error {
	return os.RemoveAll(path)
}

// Put implements Backend.
//
// Behavior: each row is written in its own badger transaction, so a
// failure partway through a chunk leaves earlier rows committed —
// acceptable per spec.md §7 since chunk_id+row_idx makes a retried chunk
// idempotent, and the Manager only advances chunks_got on overall success.
//
// Performance: one transaction per row rather than one per call trades
// write throughput for failure isolation; a chunk of N rows issues N
// separate commits.
func (BadgerBackend) Put(h Handle, bucket qbuftypes.QBufRef, rows []KV) error {
	db, ok := h.(*badger.DB)
	if !ok {
		return fmt.Errorf("backend: invalid handle")
	}
	for _, row := range rows {
		err := db.Update(func(txn *badger.Txn) error {
			return txn.Set(row.Key, row.Value)
		})
		if err != nil {
			return fmt.Errorf("backend: put: %w", err)
		}
	}
	return nil
}

// Scan implements Backend.
//
// Behavior: seeks badger's iterator directly to the bucket's key prefix via
// keycodec.BucketPrefix and walks forward while keys stay within that
// prefix, skipping offset entries and collecting at most limit.
//
// Performance: O(offset+limit) iterator steps; the prefix seek avoids
// scanning other buckets' keys, but offset entries within this bucket are
// still walked one at a time — there is no skip-ahead index.
func (BadgerBackend) Scan(h Handle, bucket qbuftypes.QBufRef, offset, limit int) ([]Row, error) {
	db, ok := h.(*badger.DB)
	if !ok {
		return nil, fmt.Errorf("backend: invalid handle")
	}

	prefix := keycodec.BucketPrefix(bucket)
	var out []Row

	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		taken := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit >= 0 && taken >= limit {
				break
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("backend: scan value: %w", err)
			}
			out = append(out, Row{Value: value})
			taken++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
