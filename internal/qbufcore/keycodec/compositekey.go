package keycodec

import "github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"

// bucketTagAbuf is the fixed "$abuf" bucket-type literal of spec.md §6: it
// identifies every qbuf composite key to the backend expiry subsystem and
// must appear at the front of the key envelope.
var bucketTagAbuf = []byte("$abuf")

// EncodeCompositeKey builds the full on-disk storage key for one row:
// (bucketTag, bucket, sortKey, chunkID, rowIdx), matching spec.md §4.2's
// "Composite storage key" and §6's bucket-tagging requirement. chunkID and
// rowIdx are encoded as plain big-endian uint64 so that, for equal sort
// keys, rows sort by arrival order (chunk, then index within chunk) rather
// than by any logical field.
func EncodeCompositeKey(bucket qbuftypes.QBufRef, sortKey []byte, chunkID, rowIdx uint64) []byte {
	key := make([]byte, 0, len(bucketTagAbuf)+len(bucket)+len(sortKey)+16)
	key = append(key, bucketTagAbuf...)
	key = append(key, bucket[:]...)
	key = append(key, sortKey...)
	key = append(key, beUint64(chunkID)...)
	key = append(key, beUint64(rowIdx)...)
	return key
}

// BucketPrefix returns the inclusive lower bound of the byte range
// containing every composite key written for bucket.
func BucketPrefix(bucket qbuftypes.QBufRef) []byte {
	prefix := make([]byte, 0, len(bucketTagAbuf)+len(bucket))
	prefix = append(prefix, bucketTagAbuf...)
	prefix = append(prefix, bucket[:]...)
	return prefix
}

// BucketUpperBound returns the exclusive upper bound of the byte range
// containing every composite key written for bucket: the bucket prefix
// with its last byte incremented, which sorts strictly after any key
// beginning with that prefix (spec.md §4.2 "Scan bounds", end_marker).
func BucketUpperBound(bucket qbuftypes.QBufRef) []byte {
	prefix := BucketPrefix(bucket)
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xFF {
			upper[i]++
			return upper[:i+1]
		}
		upper[i] = 0x00
	}
	// Every byte was already 0xFF (cannot happen with a fixed-width bucket
	// tag + 16-byte QBufRef, but handled defensively): fall back to a
	// bound one byte longer than any valid key, which still sorts after
	// all keys sharing the prefix.
	return append(upper, 0xFF)
}
