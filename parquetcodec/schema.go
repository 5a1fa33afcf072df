// Package parquetcodec implements the Parquet encode/decode/filter layer of
// spec.md §4.3, grounded on the teacher pack's
// kasuganosora-sqlexec/pkg/resource/parquet schema and I/O conventions.
package parquetcodec

import (
	"fmt"

	pq "github.com/parquet-go/parquet-go"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// ColumnType is the physical type a column batch column carries.
type ColumnType string

const (
	Int32   ColumnType = "int32"
	Int64   ColumnType = "int64"
	Float32 ColumnType = "float32"
	Float64 ColumnType = "float64"
	Boolean ColumnType = "bool"
	String  ColumnType = "string"
	Bytes   ColumnType = "bytes"
)

// ColumnSchema describes one column of a Batch.
type ColumnSchema struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Row is one record, keyed by column name. A missing or nil entry for a
// nullable column encodes SQL NULL.
type Row map[string]interface{}

// Batch is an in-memory column batch: an ordered schema plus row-major data
// (spec.md §3's column batch, write path input / read path output).
type Batch struct {
	TableName string
	Schema    []ColumnSchema
	Rows      []Row
}

func (b Batch) columnNames() []string {
	names := make([]string, len(b.Schema))
	for i, c := range b.Schema {
		names[i] = c.Name
	}
	return names
}

func (b Batch) column(name string) (ColumnSchema, bool) {
	for _, c := range b.Schema {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

func columnTypeToNode(col ColumnSchema) pq.Node {
	var node pq.Node
	switch col.Type {
	case Int32:
		node = pq.Leaf(pq.Int32Type)
	case Int64:
		node = pq.Leaf(pq.Int64Type)
	case Float32:
		node = pq.Leaf(pq.FloatType)
	case Float64:
		node = pq.Leaf(pq.DoubleType)
	case Boolean:
		node = pq.Leaf(pq.BooleanType)
	case String:
		node = pq.String()
	case Bytes:
		node = pq.Leaf(pq.ByteArrayType)
	default:
		node = pq.String()
	}
	if col.Nullable {
		node = pq.Optional(node)
	}
	return node
}

func schemaToParquet(tableName string, schema []ColumnSchema) *pq.Schema {
	group := make(pq.Group, len(schema))
	for _, col := range schema {
		group[col.Name] = columnTypeToNode(col)
	}
	return pq.NewSchema(tableName, group)
}

func projectedSchema(tableName string, schema []ColumnSchema, names []string) (*pq.Schema, error) {
	group := make(pq.Group, len(names))
	available := make([]string, len(schema))
	for i, c := range schema {
		available[i] = c.Name
	}
	for _, name := range names {
		col, ok := columnByName(schema, name)
		if !ok {
			return nil, rhizoerr.InvalidColumn(name, available)
		}
		group[name] = columnTypeToNode(col)
	}
	return pq.NewSchema(tableName, group), nil
}

func columnByName(schema []ColumnSchema, name string) (ColumnSchema, bool) {
	for _, c := range schema {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

func fieldToColumn(field pq.Field) ColumnSchema {
	col := ColumnSchema{Name: field.Name(), Nullable: field.Optional()}
	if !field.Leaf() {
		col.Type = String
		return col
	}
	t := field.Type()
	switch t.Kind() {
	case pq.Boolean:
		col.Type = Boolean
	case pq.Int32:
		col.Type = Int32
	case pq.Int64:
		col.Type = Int64
	case pq.Float:
		col.Type = Float32
	case pq.Double:
		col.Type = Float64
	case pq.ByteArray, pq.FixedLenByteArray:
		if lt := t.LogicalType(); lt != nil && lt.UTF8 != nil {
			col.Type = String
		} else {
			col.Type = Bytes
		}
	default:
		col.Type = String
	}
	return col
}

func parquetSchemaToBatchSchema(schema *pq.Schema) []ColumnSchema {
	fields := schema.Fields()
	out := make([]ColumnSchema, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldToColumn(f))
	}
	return out
}

func valueToGo(col ColumnSchema, v pq.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch col.Type {
	case Boolean:
		return v.Boolean()
	case Int32:
		return v.Int32()
	case Int64:
		return v.Int64()
	case Float32:
		return v.Float()
	case Float64:
		return v.Double()
	case String:
		return string(v.ByteArray())
	case Bytes:
		data := v.ByteArray()
		cp := make([]byte, len(data))
		copy(cp, data)
		return cp
	default:
		return string(v.ByteArray())
	}
}

func goToValue(col ColumnSchema, raw interface{}, index int) (pq.Value, error) {
	defLevel := 0
	if col.Nullable {
		defLevel = 1
	}
	if raw == nil {
		if !col.Nullable {
			return pq.Value{}, rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", fmt.Sprintf("column %q is not nullable", col.Name))
		}
		return pq.NullValue().Level(0, 0, index), nil
	}

	switch col.Type {
	case Int32:
		v, ok := raw.(int32)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.Int32Value(v).Level(0, defLevel, index), nil
	case Int64:
		v, ok := raw.(int64)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.Int64Value(v).Level(0, defLevel, index), nil
	case Float32:
		v, ok := raw.(float32)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.FloatValue(v).Level(0, defLevel, index), nil
	case Float64:
		v, ok := raw.(float64)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.DoubleValue(v).Level(0, defLevel, index), nil
	case Boolean:
		v, ok := raw.(bool)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.BooleanValue(v).Level(0, defLevel, index), nil
	case String:
		v, ok := raw.(string)
		if !ok {
			return pq.Value{}, typeMismatch(col, raw)
		}
		return pq.ByteArrayValue([]byte(v)).Level(0, defLevel, index), nil
	case Bytes:
		switch v := raw.(type) {
		case []byte:
			return pq.ByteArrayValue(v).Level(0, defLevel, index), nil
		case string:
			return pq.ByteArrayValue([]byte(v)).Level(0, defLevel, index), nil
		default:
			return pq.Value{}, typeMismatch(col, raw)
		}
	default:
		return pq.Value{}, typeMismatch(col, raw)
	}
}

func typeMismatch(col ColumnSchema, raw interface{}) *rhizoerr.Error {
	return rhizoerr.New(rhizoerr.KindInvalidInput, "TypeMismatch",
		fmt.Sprintf("column %q (%s): value %v has unexpected Go type %T", col.Name, col.Type, raw, raw))
}

func rowToParquetRow(schema []ColumnSchema, row Row) (pq.Row, error) {
	values := make([]pq.Value, len(schema))
	for i, col := range schema {
		v, err := goToValue(col, row[col.Name], i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return pq.Row(values), nil
}

func parquetRowToRow(schema []ColumnSchema, row pq.Row) Row {
	out := make(Row, len(schema))
	for i, col := range schema {
		if i < len(row) {
			out[col.Name] = valueToGo(col, row[i])
		}
	}
	return out
}
