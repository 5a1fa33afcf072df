package gossip

import (
	"encoding/json"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/common/rhizoerr"
	"github.com/rhizodata/rhizo/localcommit"
	"github.com/rhizodata/rhizo/vectorclock"
)

// wireValue is the stable JSON form of an algebra.Value (spec.md §6's
// "stable JSON encoding for gossip messages" applied to algebraic values,
// which spec.md itself does not give a wire form for).
type wireValue struct {
	Kind      string   `json:"kind"`
	Integer   int64    `json:"integer,omitempty"`
	Float     float64  `json:"float,omitempty"`
	Boolean   bool     `json:"boolean,omitempty"`
	StringSet []string `json:"string_set,omitempty"`
	IntSet    []int64  `json:"int_set,omitempty"`
}

func toWireValue(v algebra.Value) wireValue {
	switch v.Kind {
	case algebra.KindInteger:
		return wireValue{Kind: "integer", Integer: v.Integer}
	case algebra.KindFloat:
		return wireValue{Kind: "float", Float: v.Float}
	case algebra.KindBoolean:
		return wireValue{Kind: "boolean", Boolean: v.Boolean}
	case algebra.KindStringSet:
		items := make([]string, 0, len(v.StringSet))
		for s := range v.StringSet {
			items = append(items, s)
		}
		return wireValue{Kind: "string_set", StringSet: items}
	case algebra.KindIntSet:
		items := make([]int64, 0, len(v.IntSet))
		for i := range v.IntSet {
			items = append(items, i)
		}
		return wireValue{Kind: "int_set", IntSet: items}
	default:
		return wireValue{Kind: "null"}
	}
}

func fromWireValue(w wireValue) (algebra.Value, error) {
	switch w.Kind {
	case "integer":
		return algebra.Int(w.Integer), nil
	case "float":
		return algebra.Flt(w.Float), nil
	case "boolean":
		return algebra.Bool(w.Boolean), nil
	case "string_set":
		return algebra.StrSet(w.StringSet...), nil
	case "int_set":
		return algebra.IntSetOf(w.IntSet...), nil
	case "null":
		return algebra.Null(), nil
	default:
		return algebra.Value{}, rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", "unknown wire value kind: "+w.Kind)
	}
}

type wireOperation struct {
	Key    string    `json:"key"`
	OpType string    `json:"op_type"`
	Value  wireValue `json:"value"`
}

// wireUpdate is the over-the-wire form of a localcommit.VersionedUpdate:
// operations, the vector clock wire form of spec.md §6 ("map of
// {node_id: u64}, missing = 0"), origin, and update id.
type wireUpdate struct {
	Operations []wireOperation   `json:"operations"`
	Clock      map[string]uint64 `json:"clock"`
	Origin     string            `json:"origin"`
	UpdateID   string            `json:"update_id"`
}

func marshalUpdate(u localcommit.VersionedUpdate) ([]byte, error) {
	w := wireUpdate{
		Operations: make([]wireOperation, len(u.Operations)),
		Clock:      u.Clock.ToMap(),
		Origin:     u.Origin,
		UpdateID:   u.UpdateID,
	}
	for i, op := range u.Operations {
		w.Operations[i] = wireOperation{Key: op.Key, OpType: op.OpType.String(), Value: toWireValue(op.Value)}
	}
	return json.Marshal(w)
}

func unmarshalUpdate(data []byte) (localcommit.VersionedUpdate, error) {
	var w wireUpdate
	if err := json.Unmarshal(data, &w); err != nil {
		return localcommit.VersionedUpdate{}, rhizoerr.IO("gossip.unmarshal", err)
	}

	ops := make([]localcommit.Operation, len(w.Operations))
	for i, op := range w.Operations {
		opType, ok := algebra.ParseOpType(op.OpType)
		if !ok {
			return localcommit.VersionedUpdate{}, rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", "unknown op type on wire: "+op.OpType)
		}
		value, err := fromWireValue(op.Value)
		if err != nil {
			return localcommit.VersionedUpdate{}, err
		}
		ops[i] = localcommit.Operation{Key: op.Key, OpType: opType, Value: value}
	}

	return localcommit.VersionedUpdate{
		Operations: ops,
		Clock:      vectorclock.FromMap(w.Clock),
		Origin:     w.Origin,
		UpdateID:   w.UpdateID,
	}, nil
}
