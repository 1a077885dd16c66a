// Package keycodec builds the byte-comparable composite storage keys that
// make an ordered key-value scan produce the correct global ORDER BY
// ordering, including DESC inversion and NULLS FIRST/LAST placement across
// heterogeneous column types.
//
// # Encoding scheme
//
// A composite storage key is the concatenation of:
//
//	bucketTag || bucket (16 bytes) || sortKey || chunkID (8 bytes, BE) || rowIdx (8 bytes, BE)
//
// sortKey is itself the concatenation of one encoded segment per ORDER BY
// field, in ORDER BY order. Each segment is built so that its byte order
// matches its field's logical order:
//
//   - NULL sentinel: 0x00 if NULLS FIRST, 0xFF if NULLS LAST, so it sorts
//     before (resp. after) every non-null encoding of the same type.
//   - ASC non-null: the value's natural big-endian / sign-flipped encoding,
//     framed with a 0x01 presence byte so it sorts strictly between the
//     NULLS FIRST and NULLS LAST sentinels.
//   - DESC non-null: the same encoding with every byte bitwise-complemented,
//     which turns ascending byte order into descending logical order (for
//     fixed-width numbers this has the effect of negation, for booleans of
//     logical not; no separate negation step is applied).
//
// chunkID and rowIdx are encoded as plain big-endian uint64 so that ties in
// the sort key break in arrival order, never participating in the logical
// ordering itself (spec.md §5).
package keycodec
