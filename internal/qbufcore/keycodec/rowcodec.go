package keycodec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

// gobRow mirrors qbuftypes.Row/Value with only exported fields, since gob
// requires exported fields and qbuftypes.Value is already fully exported —
// this indirection exists so row encoding has one obvious place to evolve
// independently of the in-memory Value shape.
type gobRow struct {
	Values []qbuftypes.Value
}

// RowCodec encodes and decodes row payloads for the KV backend. The
// encoding is self-describing (spec.md §4.2 "Row payload encoding") and
// must round-trip exactly, including raw byte columns and null flags —
// encoding/gob satisfies both without the escaping concerns a text format
// like JSON would add for arbitrary []byte content.
type RowCodec struct{}

// NewRowCodec returns a ready-to-use RowCodec.
func NewRowCodec() RowCodec { return RowCodec{} }

// Encode serializes a row to bytes.
func (RowCodec) Encode(row qbuftypes.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobRow{Values: row.Values}); err != nil {
		return nil, fmt.Errorf("keycodec: encode row: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes produced by Encode back into a row.
func (RowCodec) Decode(data []byte) (qbuftypes.Row, error) {
	var gr gobRow
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gr); err != nil {
		return qbuftypes.Row{}, fmt.Errorf("keycodec: decode row: %w", err)
	}
	return qbuftypes.Row{Values: gr.Values}, nil
}
