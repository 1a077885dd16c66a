package keycodec

import (
	"bytes"
	"testing"

	"github.com/dreamware/qbuf/internal/qbufcore/qbuftypes"
)

func ascField(pos int) qbuftypes.OrderByField {
	return qbuftypes.OrderByField{Position: pos, Direction: qbuftypes.Asc, Nulls: qbuftypes.NullsFirst}
}

func descField(pos int, nulls qbuftypes.NullsOrder) qbuftypes.OrderByField {
	return qbuftypes.OrderByField{Position: pos, Direction: qbuftypes.Desc, Nulls: nulls}
}

func TestEncodeSortKeyIntOrdering(t *testing.T) {
	fields := []qbuftypes.OrderByField{ascField(0)}

	vals := []int64{3, 1, 4, 1, 5, 9, -2, 0}
	keys := make([][]byte, len(vals))
	for i, v := range vals {
		keys[i] = EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(v)}, fields)
	}

	for i := range vals {
		for j := range vals {
			gotCmp := bytes.Compare(keys[i], keys[j])
			wantCmp := 0
			switch {
			case vals[i] < vals[j]:
				wantCmp = -1
			case vals[i] > vals[j]:
				wantCmp = 1
			}
			if sign(gotCmp) != sign(wantCmp) {
				t.Errorf("ordering mismatch for %d vs %d: byte compare = %d, want sign %d", vals[i], vals[j], gotCmp, wantCmp)
			}
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestEncodeSortKeyDescInvertsOrder(t *testing.T) {
	fields := []qbuftypes.OrderByField{descField(0, qbuftypes.NullsLast)}

	keyLow := EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(1)}, fields)
	keyHigh := EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(9)}, fields)

	if bytes.Compare(keyHigh, keyLow) >= 0 {
		t.Errorf("DESC encoding did not invert order: key(9) should sort before key(1)")
	}
}

func TestEncodeSortKeyNullsFirstAndLast(t *testing.T) {
	nullsFirst := []qbuftypes.OrderByField{ascField(0)}
	nullsFirst[0].Nulls = qbuftypes.NullsFirst

	nullKey := EncodeSortKey([]qbuftypes.Value{qbuftypes.NullValue(qbuftypes.ColumnInt64)}, nullsFirst)
	valKey := EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(-1000)}, nullsFirst)
	if bytes.Compare(nullKey, valKey) >= 0 {
		t.Errorf("NULLS FIRST sentinel did not sort before a very small non-null value")
	}

	nullsLast := []qbuftypes.OrderByField{ascField(0)}
	nullsLast[0].Nulls = qbuftypes.NullsLast

	nullKey2 := EncodeSortKey([]qbuftypes.Value{qbuftypes.NullValue(qbuftypes.ColumnInt64)}, nullsLast)
	valKey2 := EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(1000)}, nullsLast)
	if bytes.Compare(nullKey2, valKey2) <= 0 {
		t.Errorf("NULLS LAST sentinel did not sort after a very large non-null value")
	}
}

func TestEncodeSortKeyFloatOrdering(t *testing.T) {
	fields := []qbuftypes.OrderByField{ascField(0)}
	vals := []float64{-3.5, -0.001, 0, 0.001, 2.75}

	var prev []byte
	for i, v := range vals {
		key := EncodeSortKey([]qbuftypes.Value{qbuftypes.Float64Value(v)}, fields)
		if i > 0 && bytes.Compare(prev, key) >= 0 {
			t.Errorf("float key for %v did not sort after key for %v", v, vals[i-1])
		}
		prev = key
	}
}

func TestEncodeSortKeyBoolOrdering(t *testing.T) {
	fields := []qbuftypes.OrderByField{ascField(0)}
	falseKey := EncodeSortKey([]qbuftypes.Value{qbuftypes.BoolValue(false)}, fields)
	trueKey := EncodeSortKey([]qbuftypes.Value{qbuftypes.BoolValue(true)}, fields)
	if bytes.Compare(falseKey, trueKey) >= 0 {
		t.Errorf("ASC bool encoding: false should sort before true")
	}
}

func TestEncodeSortKeyStringPrefixFree(t *testing.T) {
	fields := []qbuftypes.OrderByField{ascField(0)}

	// "ab" is a true prefix of "abc"; ascending order must still put "ab"
	// before "abc" even though the shorter string is a literal prefix.
	keyAB := EncodeSortKey([]qbuftypes.Value{qbuftypes.StringValue("ab")}, fields)
	keyABC := EncodeSortKey([]qbuftypes.Value{qbuftypes.StringValue("abc")}, fields)
	if bytes.Compare(keyAB, keyABC) >= 0 {
		t.Errorf("prefix string %q should sort before %q", "ab", "abc")
	}

	keyEqual1 := EncodeSortKey([]qbuftypes.Value{qbuftypes.StringValue("same")}, fields)
	keyEqual2 := EncodeSortKey([]qbuftypes.Value{qbuftypes.StringValue("same")}, fields)
	if !bytes.Equal(keyEqual1, keyEqual2) {
		t.Errorf("equal strings must encode identically")
	}
}

func TestEncodeSortKeyCompositeMixedDirection(t *testing.T) {
	// ORDER BY a ASC, b DESC — spec.md §8 scenario 3.
	fields := []qbuftypes.OrderByField{ascField(0), descField(1, qbuftypes.NullsLast)}

	rows := [][2]int64{{1, 9}, {1, 3}, {2, 5}}
	keys := make([][]byte, len(rows))
	for i, r := range rows {
		keys[i] = EncodeSortKey([]qbuftypes.Value{qbuftypes.Int64Value(r[0]), qbuftypes.Int64Value(r[1])}, fields)
	}

	// (1,9) < (1,3) < (2,5) under "a ASC, b DESC".
	if bytes.Compare(keys[0], keys[1]) >= 0 {
		t.Errorf("(1,9) should sort before (1,3) under a ASC, b DESC")
	}
	if bytes.Compare(keys[1], keys[2]) >= 0 {
		t.Errorf("(1,3) should sort before (2,5) under a ASC, b DESC")
	}
}
