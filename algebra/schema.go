package algebra

import (
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/rhizodata/rhizo/common/hashing"
)

// TableSchema maps a table's columns to their operation types, with a
// default for columns not explicitly listed (spec.md §3 "Schema
// Registry").
type TableSchema struct {
	DefaultOpType OpType
	Columns       map[string]OpType
}

// Registry is the `map<table, TableSchema>` of spec.md §3.
type Registry struct {
	tables map[string]TableSchema
}

// NewRegistry returns an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{tables: map[string]TableSchema{}}
}

// Register installs or replaces a table's schema.
func (r *Registry) Register(table string, schema TableSchema) {
	r.tables[table] = schema
}

// GetOpType returns the column-specific type if registered, else the
// table's default, else Unknown (spec.md §4.7).
func (r *Registry) GetOpType(table, column string) OpType {
	schema, ok := r.tables[table]
	if !ok {
		return Unknown
	}
	if t, ok := schema.Columns[column]; ok {
		return t
	}
	return schema.DefaultOpType
}

// CanAutoMerge reports whether every listed column is conflict-free, and
// whether the table's default op type is conflict-free for any column not
// in the list. The default check matters even when columns is empty: a
// table registered with only a DefaultOpType and no explicit overrides
// still has every column resolve through that default, so an empty list
// must not vacuously report true.
func (r *Registry) CanAutoMerge(table string, columns []string) bool {
	schema, ok := r.tables[table]
	if !ok {
		return false
	}
	if !schema.DefaultOpType.IsConflictFree() {
		return false
	}
	for _, col := range columns {
		if !r.GetOpType(table, col).IsConflictFree() {
			return false
		}
	}
	return true
}

// Columns returns the explicitly registered column names for table, sorted;
// empty if the table has no registered schema.
func (r *Registry) Columns(table string) []string {
	schema, ok := r.tables[table]
	if !ok {
		return nil
	}
	cols := make([]string, 0, len(schema.Columns))
	for c := range schema.Columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Registered reports whether table has an installed schema.
func (r *Registry) Registered(table string) bool {
	_, ok := r.tables[table]
	return ok
}

// AllAdditive builds a schema defaulting every column (and the table
// default) to AbelianAdd.
func AllAdditive(columns []string) TableSchema {
	cols := make(map[string]OpType, len(columns))
	for _, c := range columns {
		cols[c] = AbelianAdd
	}
	return TableSchema{DefaultOpType: AbelianAdd, Columns: cols}
}

// AllMax builds a schema defaulting every column (and the table default) to
// SemilatticeMax.
func AllMax(columns []string) TableSchema {
	cols := make(map[string]OpType, len(columns))
	for _, c := range columns {
		cols[c] = SemilatticeMax
	}
	return TableSchema{DefaultOpType: SemilatticeMax, Columns: cols}
}

// Digest computes the table's schema digest as the content hash of its
// canonical CBOR encoding (deterministic core encoding options, so two
// semantically-equal schemas always hash identically regardless of Go map
// iteration order). This digest is never written to disk as CBOR — it only
// feeds TableVersion.SchemaHash (spec.md §3).
func Digest(schema TableSchema) (string, error) {
	type wireSchema struct {
		Default string
		Columns map[string]string
	}
	w := wireSchema{Default: schema.DefaultOpType.String(), Columns: map[string]string{}}
	for col, op := range schema.Columns {
		w.Columns[col] = op.String()
	}

	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return "", err
	}
	encoded, err := mode.Marshal(w)
	if err != nil {
		return "", err
	}
	return hashing.Sum(encoded), nil
}
