package parquetcodec

import (
	"fmt"
	"math"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// FilterOp is one of the six scalar comparison operators spec.md §4.3
// supports for predicate pushdown.
type FilterOp string

const (
	OpEqual        FilterOp = "="
	OpNotEqual     FilterOp = "!="
	OpLess         FilterOp = "<"
	OpLessEqual    FilterOp = "<="
	OpGreater      FilterOp = ">"
	OpGreaterEqual FilterOp = ">="
)

// Filter is one predicate in a decode_with_filter conjunction.
type Filter struct {
	Column string
	Op     FilterOp
	Scalar interface{}
}

// PruningStats is get_pruning_stats' diagnostic output.
type PruningStats struct {
	Total  int
	Pruned int
	Kept   int
}

// DecodeWithFilter applies filters as a conjunction: row groups are pruned
// by min/max statistics first, then surviving rows are evaluated against
// the full predicate before the projected columns are returned.
func DecodeWithFilter(data []byte, filters []Filter, projection []string) (Batch, error) {
	pf, err := openFile(data)
	if err != nil {
		return Batch{}, err
	}
	full := parquetSchemaToBatchSchema(pf.Schema())
	available := schemaNames(full)

	for _, f := range filters {
		if _, ok := columnByName(full, f.Column); !ok {
			return Batch{}, rhizoerr.InvalidColumn(f.Column, available)
		}
	}

	outNames := projection
	if outNames == nil {
		outNames = available
	}
	for _, name := range outNames {
		if _, ok := columnByName(full, name); !ok {
			return Batch{}, rhizoerr.InvalidColumn(name, available)
		}
	}

	survivingGroups, err := keptRowGroups(pf, full, filters)
	if err != nil {
		return Batch{}, err
	}

	// Row groups are decoded in full (the surviving-group set is already
	// narrowed by pruning); the row-level predicate and the output
	// projection are both applied after decode.
	rows, err := readFilteredRows(pf, full, filters, survivingGroups)
	if err != nil {
		return Batch{}, err
	}

	outSchema := selectSchema(full, outNames)
	out := Batch{TableName: pf.Schema().Name(), Schema: outSchema}
	for _, row := range rows {
		projectedRow := make(Row, len(outNames))
		for _, name := range outNames {
			projectedRow[name] = row[name]
		}
		out.Rows = append(out.Rows, projectedRow)
	}
	return out, nil
}

// GetPruningStats reports row-group pruning outcomes without decoding rows.
func GetPruningStats(data []byte, filters []Filter) (PruningStats, error) {
	pf, err := openFile(data)
	if err != nil {
		return PruningStats{}, err
	}
	full := parquetSchemaToBatchSchema(pf.Schema())
	kept, err := keptRowGroups(pf, full, filters)
	if err != nil {
		return PruningStats{}, err
	}
	total := len(pf.RowGroups())
	return PruningStats{Total: total, Kept: len(kept), Pruned: total - len(kept)}, nil
}

func schemaNames(schema []ColumnSchema) []string {
	out := make([]string, len(schema))
	for i, c := range schema {
		out[i] = c.Name
	}
	return out
}

// evalFilter reports whether row satisfies every filter.
func evalFilter(schema []ColumnSchema, row Row, filters []Filter) (bool, error) {
	for _, f := range filters {
		col, _ := columnByName(schema, f.Column)
		ok, err := evalOne(col, row[f.Column], f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalOne(col ColumnSchema, value interface{}, f Filter) (bool, error) {
	if value == nil || f.Scalar == nil {
		return false, nil
	}

	switch col.Type {
	case Boolean:
		if f.Op != OpEqual && f.Op != OpNotEqual {
			return false, rhizoerr.New(rhizoerr.KindInvalidInput, "TypeMismatch",
				fmt.Sprintf("column %q: boolean columns only support = and !=", col.Name))
		}
		a, aok := value.(bool)
		b, bok := f.Scalar.(bool)
		if !aok || !bok {
			return false, typeMismatch(col, f.Scalar)
		}
		if f.Op == OpEqual {
			return a == b, nil
		}
		return a != b, nil
	case Int32:
		return compareOrdered(int64(value.(int32)), toInt64(f.Scalar), f.Op, col, f.Scalar)
	case Int64:
		return compareOrdered(value.(int64), toInt64(f.Scalar), f.Op, col, f.Scalar)
	case Float32:
		a := float64(value.(float32))
		b, ok := toFloat64(f.Scalar)
		if !ok {
			return false, typeMismatch(col, f.Scalar)
		}
		return compareFloat(a, b, f.Op), nil
	case Float64:
		a := value.(float64)
		b, ok := toFloat64(f.Scalar)
		if !ok {
			return false, typeMismatch(col, f.Scalar)
		}
		return compareFloat(a, b, f.Op), nil
	case String:
		a, aok := value.(string)
		b, bok := f.Scalar.(string)
		if !aok || !bok {
			return false, typeMismatch(col, f.Scalar)
		}
		return compareStrings(a, b, f.Op), nil
	default:
		return false, typeMismatch(col, f.Scalar)
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareOrdered(a, b int64, op FilterOp, col ColumnSchema, raw interface{}) (bool, error) {
	switch op {
	case OpEqual:
		return a == b, nil
	case OpNotEqual:
		return a != b, nil
	case OpLess:
		return a < b, nil
	case OpLessEqual:
		return a <= b, nil
	case OpGreater:
		return a > b, nil
	case OpGreaterEqual:
		return a >= b, nil
	default:
		return false, typeMismatch(col, raw)
	}
}

// compareFloat treats NaN as unequal to everything: only != yields true
// against a NaN operand (spec.md §4.3).
func compareFloat(a, b float64, op FilterOp) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return op == OpNotEqual
	}
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	default:
		return false
	}
}

func compareStrings(a, b string, op FilterOp) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	default:
		return false
	}
}
