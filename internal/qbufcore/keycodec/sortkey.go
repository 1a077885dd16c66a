package keycodec

import (
	"math"

	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

const (
	nullsFirstSentinel byte = 0x00
	presenceMarker     byte = 0x01
	nullsLastSentinel  byte = 0xFF
)

// EncodeSortKey builds the byte-comparable sort key for one row under the
// given ORDER BY fields, implementing spec.md §4.2's transform rules: a
// NULL sentinel per field's NULLS FIRST/LAST placement, and for non-null
// values an ASC-ordered encoding optionally complemented for DESC.
//
// Fields are encoded in order and concatenated; two sort keys compare
// byte-wise exactly as their rows compare under the full ORDER BY clause,
// with ties (equal sort keys) broken by the chunk_id/row_idx suffix that
// EncodeCompositeKey appends.
func EncodeSortKey(values []qbuftypes.Value, fields []qbuftypes.OrderByField) []byte {
	var buf []byte
	for _, f := range fields {
		v := values[f.Position]
		switch {
		case v.Null && f.Nulls == qbuftypes.NullsFirst:
			buf = append(buf, nullsFirstSentinel)
		case v.Null:
			buf = append(buf, nullsLastSentinel)
		default:
			buf = append(buf, presenceMarker)
			buf = append(buf, encodeValue(v, f.Direction)...)
		}
	}
	return buf
}

// encodeValue encodes one non-null value so that ascending byte order
// matches ascending logical order, then — for DESC fields — bitwise
// complements the result.
//
// Complementing an ascending order-preserving encoding is order-reversing
// for every type here: for fixed-width numeric encodings it is the bitwise
// equivalent of negating the value before encoding (spec.md §4.2 rule 3
// "numbers: negate"); for a single present/absent bit it is the equivalent
// of logical not ("booleans: logical not"); for the escaped byte-string
// encoding it is literally "bitwise-not each byte". Unifying all three as
// "complement the ascending encoding" keeps one code path instead of three.
func encodeValue(v qbuftypes.Value, dir qbuftypes.Direction) []byte {
	asc := encodeAscending(v)
	if dir == qbuftypes.Desc {
		complement(asc)
	}
	return asc
}

func encodeAscending(v qbuftypes.Value) []byte {
	switch v.Type {
	case qbuftypes.ColumnInt64, qbuftypes.ColumnTimestamp:
		return encodeOrderedInt64(v.Int64)
	case qbuftypes.ColumnFloat64:
		return encodeOrderedFloat64(v.Float64)
	case qbuftypes.ColumnBool:
		if v.Bool {
			return []byte{0x01}
		}
		return []byte{0x00}
	case qbuftypes.ColumnString:
		return escapeAndTerminate([]byte(v.Str))
	case qbuftypes.ColumnBytes:
		return escapeAndTerminate(v.Bytes)
	default:
		return escapeAndTerminate(v.Bytes)
	}
}

// encodeOrderedInt64 flips the sign bit so that the resulting uint64,
// compared as big-endian bytes, orders identically to the signed value.
func encodeOrderedInt64(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	return beUint64(u)
}

// encodeOrderedFloat64 applies the standard IEEE-754 order-preserving
// transform: for non-negative floats, set the sign bit; for negative
// floats, complement every bit. Both halves then compare correctly against
// each other under big-endian byte order, and negatives sort before
// positives.
func encodeOrderedFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return beUint64(bits)
}

func beUint64(u uint64) []byte {
	return []byte{
		byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32),
		byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u),
	}
}

// escapeAndTerminate encodes an arbitrary byte string so that the result is
// prefix-free and compares in the same order as the original string would
// under lexicographic (possibly unequal-length) comparison: every literal
// 0x00 byte is escaped to 0x00 0xFF, and the whole encoding is terminated
// with 0x00 0x00, a byte pair that cannot occur as an escape (which is
// always followed by 0xFF) and therefore can only mark the true end.
func escapeAndTerminate(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, c)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// complement bitwise-inverts every byte of b in place.
func complement(b []byte) {
	for i, c := range b {
		b[i] = ^c
	}
}
