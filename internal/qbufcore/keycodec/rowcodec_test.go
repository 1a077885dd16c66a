package keycodec

import (
	"bytes"
	"testing"

	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

func TestRowCodecRoundTrip(t *testing.T) {
	codec := NewRowCodec()

	row := qbuftypes.Row{Values: []qbuftypes.Value{
		qbuftypes.Int64Value(42),
		qbuftypes.Float64Value(3.25),
		qbuftypes.BoolValue(true),
		qbuftypes.StringValue("hello"),
		qbuftypes.BytesValue([]byte{0x00, 0xFF, 0x01, 0x00}),
		qbuftypes.TimestampValue(1_700_000_000_000),
		qbuftypes.NullValue(qbuftypes.ColumnString),
	}}

	encoded, err := codec.Encode(row)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(decoded.Values) != len(row.Values) {
		t.Fatalf("decoded %d values, want %d", len(decoded.Values), len(row.Values))
	}
	for i, want := range row.Values {
		got := decoded.Values[i]
		if got.Null != want.Null || got.Type != want.Type || got.Int64 != want.Int64 ||
			got.Float64 != want.Float64 || got.Bool != want.Bool || got.Str != want.Str ||
			!bytes.Equal(got.Bytes, want.Bytes) {
			t.Errorf("value %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestRowCodecRoundTripEmptyRow(t *testing.T) {
	codec := NewRowCodec()

	encoded, err := codec.Encode(qbuftypes.Row{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Values) != 0 {
		t.Errorf("decoded %d values for an empty row, want 0", len(decoded.Values))
	}
}

func TestRowCodecDecodeRejectsGarbage(t *testing.T) {
	codec := NewRowCodec()
	if _, err := codec.Decode([]byte("not a gob stream")); err == nil {
		t.Errorf("Decode of garbage bytes should return an error")
	}
}

func TestRowCodecPreservesRawBytesWithEmbeddedZeros(t *testing.T) {
	codec := NewRowCodec()
	raw := []byte{0x00, 0x00, 0xFF, 0x00, 0x00, 0x41}

	row := qbuftypes.Row{Values: []qbuftypes.Value{qbuftypes.BytesValue(raw)}}
	encoded, err := codec.Encode(row)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded.Values[0].Bytes, raw) {
		t.Errorf("raw bytes with embedded zeros did not round-trip: got %v, want %v", decoded.Values[0].Bytes, raw)
	}
}
