package parquetcodec

import (
	"io"

	pq "github.com/parquet-go/parquet-go"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// bounds is a row group's [min, max] for one column, reduced across every
// page in that column chunk.
type bounds struct {
	min, max interface{}
	ok       bool
}

func columnBounds(rg pq.RowGroup, colIndex int, col ColumnSchema) (bounds, error) {
	chunks := rg.ColumnChunks()
	if colIndex < 0 || colIndex >= len(chunks) {
		return bounds{}, nil
	}
	ci, err := chunks[colIndex].ColumnIndex()
	if err != nil || ci == nil {
		// Absence of statistics is never a reason to prune (spec.md §4.3).
		return bounds{}, nil
	}

	var b bounds
	for p := 0; p < ci.NumPages(); p++ {
		if ci.NullPage(p) {
			continue
		}
		pmin := valueToGo(col, ci.MinValue(p))
		pmax := valueToGo(col, ci.MaxValue(p))
		if pmin == nil || pmax == nil {
			continue
		}
		if !b.ok {
			b = bounds{min: pmin, max: pmax, ok: true}
			continue
		}
		if compareScalar(pmin, b.min) < 0 {
			b.min = pmin
		}
		if compareScalar(pmax, b.max) > 0 {
			b.max = pmax
		}
	}
	return b, nil
}

// compareScalar orders two values of the same underlying Go type as
// produced by valueToGo; used only for reducing page bounds and for pruning
// decisions, never exposed as a general ordering over Algebraic Values.
func compareScalar(a, b interface{}) int {
	switch av := a.(type) {
	case int32:
		bv := b.(int32)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float32:
		bv := b.(float32)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}

// pruneRowGroup reports whether the row group can be skipped entirely for
// filter f given column stats b (spec.md §4.3's pruning-rule table).
func pruneRowGroup(b bounds, f Filter, col ColumnSchema) bool {
	if !b.ok {
		return false
	}
	value := normalizeScalar(col, f.Scalar)
	if value == nil {
		return false
	}

	switch f.Op {
	case OpGreater:
		return compareScalar(b.max, value) <= 0
	case OpGreaterEqual:
		return compareScalar(b.max, value) < 0
	case OpLess:
		return compareScalar(b.min, value) >= 0
	case OpLessEqual:
		return compareScalar(b.min, value) > 0
	case OpEqual:
		return compareScalar(value, b.min) < 0 || compareScalar(value, b.max) > 0
	case OpNotEqual:
		return compareScalar(b.min, b.max) == 0 && compareScalar(b.min, value) == 0
	default:
		return false
	}
}

func normalizeScalar(col ColumnSchema, raw interface{}) interface{} {
	switch col.Type {
	case Int32:
		return int32(toInt64(raw))
	case Int64:
		return toInt64(raw)
	case Float32:
		f, ok := toFloat64(raw)
		if !ok {
			return nil
		}
		return float32(f)
	case Float64:
		f, ok := toFloat64(raw)
		if !ok {
			return nil
		}
		return f
	case String:
		s, ok := raw.(string)
		if !ok {
			return nil
		}
		return s
	case Boolean:
		v, ok := raw.(bool)
		if !ok {
			return nil
		}
		return v
	default:
		return nil
	}
}

// keptRowGroups returns the indices of row groups that survive pruning for
// every filter (a conjunction: a row group is pruned if any filter prunes
// it).
func keptRowGroups(pf *pq.File, schema []ColumnSchema, filters []Filter) ([]int, error) {
	groups := pf.RowGroups()
	kept := make([]int, 0, len(groups))
	for i, rg := range groups {
		pruned := false
		for _, f := range filters {
			col, ok := columnByName(schema, f.Column)
			if !ok {
				continue
			}
			colIndex := columnPosition(schema, f.Column)
			b, err := columnBounds(rg, colIndex, col)
			if err != nil {
				return nil, err
			}
			if pruneRowGroup(b, f, col) {
				pruned = true
				break
			}
		}
		if !pruned {
			kept = append(kept, i)
		}
	}
	return kept, nil
}

func columnPosition(schema []ColumnSchema, name string) int {
	for i, c := range schema {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// readFilteredRows decodes only the surviving row groups (full width, since
// each row group's physical layout matches the file schema), applying the
// row-level predicate before returning rows (spec.md §4.3 phase 2).
func readFilteredRows(pf *pq.File, fullSchema []ColumnSchema, filters []Filter, keptGroups []int) ([]Row, error) {
	if len(keptGroups) == 0 {
		return nil, nil
	}

	keptSet := make(map[int]bool, len(keptGroups))
	for _, i := range keptGroups {
		keptSet[i] = true
	}

	groups := pf.RowGroups()
	var rows []Row
	for i, rg := range groups {
		if !keptSet[i] {
			continue
		}
		groupRows, err := readRowGroup(rg, fullSchema)
		if err != nil {
			return nil, err
		}
		for _, row := range groupRows {
			ok, err := evalFilter(fullSchema, row, filters)
			if err != nil {
				return nil, err
			}
			if ok {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

func readRowGroup(rg pq.RowGroup, fullSchema []ColumnSchema) ([]Row, error) {
	reader := rg.Rows()
	defer reader.Close()

	var rows []Row
	buf := make([]pq.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			rows = append(rows, parquetRowToRow(fullSchema, buf[i]))
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, rhizoerr.IO("read row group", err)
		}
	}
	return rows, nil
}
