// Package qbuftypes holds the domain types shared across the qbuf
// subsystem's internal packages (the qbuf entity/manager, the key codec, and
// the KV backend adapter) so that none of those packages needs to import
// another to reach a plain data type. It has no internal dependencies.
package qbuftypes

import "fmt"

// QBufRef is an opaque, unique, stable identifier for one qbuf's life, used
// both as the manager's table key and as the bucket component of every
// composite storage key (spec.md §3 "QBufRef"). It only needs to be unique
// within a process lifetime (spec.md §9 "Unique-ref generation").
type QBufRef [16]byte

// ColumnType is the type of a result column as reported by the compiled
// SELECT/DDL. qbuf only needs enough type information to build
// order-preserving sort keys and to round-trip row payloads; it never
// interprets values beyond that.
type ColumnType int

const (
	// ColumnInt64 covers all signed integer result columns.
	ColumnInt64 ColumnType = iota
	// ColumnFloat64 covers floating point result columns.
	ColumnFloat64
	// ColumnBool covers boolean result columns.
	ColumnBool
	// ColumnString covers UTF-8 text result columns.
	ColumnString
	// ColumnBytes covers opaque byte-string result columns.
	ColumnBytes
	// ColumnTimestamp covers time-series timestamp columns, encoded as
	// nanoseconds since the Unix epoch for ordering purposes.
	ColumnTimestamp
)

// Direction is the ASC/DESC direction of an ORDER BY field.
type Direction int

const (
	// Asc sorts ascending (smallest first).
	Asc Direction = iota
	// Desc sorts descending (largest first).
	Desc
)

// NullsOrder is the NULLS FIRST/LAST placement of an ORDER BY field.
type NullsOrder int

const (
	// NullsFirst places NULL values before any non-null value.
	NullsFirst NullsOrder = iota
	// NullsLast places NULL values after any non-null value.
	NullsLast
)

// Column describes one column of the compiled SELECT clause.
type Column struct {
	Name string
	Type ColumnType
}

// OrderByField describes one compiled ORDER BY field, resolved to a position
// within the row tuple.
type OrderByField struct {
	// Position indexes into the row's value tuple (and therefore into
	// Schema.Columns), resolved from the DDL field list at construction
	// time.
	Position  int
	Direction Direction
	Nulls     NullsOrder
}

// DDLField describes one field of the schema (DDL) used to resolve ORDER BY
// column names to row-tuple positions.
type DDLField struct {
	Name     string
	Position int
	Type     ColumnType
}

// CompiledOrderBy is one entry of the SQL compiler's ORDER BY clause, named
// by column rather than by resolved position.
type CompiledOrderBy struct {
	ColumnName string
	Direction  Direction
	Nulls      NullsOrder
}

// Schema is the resolved column list and ORDER BY key for one qbuf, built
// from the SQL compiler's compiled SELECT clause, compiled ORDER BY clause,
// and DDL field list (spec.md §6 "Construction inputs").
type Schema struct {
	Columns []Column
	OrderBy []OrderByField
}

// NewSchema resolves a compiled SELECT clause and compiled ORDER BY clause
// against a DDL field list, producing a Schema whose OrderByField.Position
// values index directly into the row tuple.
//
// Returns an error if an ORDER BY column name is not present in the DDL.
func NewSchema(selectCols []Column, orderBy []CompiledOrderBy, ddl []DDLField) (Schema, error) {
	byName := make(map[string]int, len(ddl))
	for _, f := range ddl {
		byName[f.Name] = f.Position
	}

	resolved := make([]OrderByField, 0, len(orderBy))
	for _, ob := range orderBy {
		pos, ok := byName[ob.ColumnName]
		if !ok {
			return Schema{}, fmt.Errorf("qbuf: order by column %q not in ddl", ob.ColumnName)
		}
		resolved = append(resolved, OrderByField{
			Position:  pos,
			Direction: ob.Direction,
			Nulls:     ob.Nulls,
		})
	}

	cols := make([]Column, len(selectCols))
	copy(cols, selectCols)

	return Schema{Columns: cols, OrderBy: resolved}, nil
}

// Value is one column value of a result row. Null is true for SQL NULL; the
// concrete field matching Type is otherwise meaningful.
//
// Value is intentionally a plain struct rather than an interface: the key
// codec and row codec both need to exhaustively switch on ColumnType, and a
// closed struct keeps that switch total instead of requiring a type
// assertion default case.
type Value struct {
	Null    bool
	Type    ColumnType
	Int64   int64
	Float64 float64
	Bool    bool
	Str     string
	Bytes   []byte
}

// Row is one result row: one Value per Schema.Columns entry, in order.
type Row struct {
	Values []Value
}

// NullValue returns the NULL value for the given column type.
func NullValue(t ColumnType) Value { return Value{Null: true, Type: t} }

// Int64Value returns a non-null int64 value.
func Int64Value(v int64) Value { return Value{Type: ColumnInt64, Int64: v} }

// Float64Value returns a non-null float64 value.
func Float64Value(v float64) Value { return Value{Type: ColumnFloat64, Float64: v} }

// BoolValue returns a non-null bool value.
func BoolValue(v bool) Value { return Value{Type: ColumnBool, Bool: v} }

// StringValue returns a non-null string value.
func StringValue(v string) Value { return Value{Type: ColumnString, Str: v} }

// BytesValue returns a non-null byte-string value.
func BytesValue(v []byte) Value { return Value{Type: ColumnBytes, Bytes: v} }

// TimestampValue returns a non-null timestamp value, in nanoseconds since the
// Unix epoch.
func TimestampValue(nanos int64) Value { return Value{Type: ColumnTimestamp, Int64: nanos} }
