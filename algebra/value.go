// Package algebra implements the algebraic value model, operation
// classification, merger, and schema registry of spec.md §4.7.
package algebra

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindFloat
	KindBoolean
	KindStringSet
	KindIntSet
	KindNull
)

// Value is the tagged variant over {Integer, Float, Boolean, StringSet,
// IntSet, Null} (spec.md §3 "Algebraic Value").
type Value struct {
	Kind      ValueKind
	Integer   int64
	Float     float64
	Boolean   bool
	StringSet map[string]struct{}
	IntSet    map[int64]struct{}
}

func Int(v int64) Value    { return Value{Kind: KindInteger, Integer: v} }
func Flt(v float64) Value  { return Value{Kind: KindFloat, Float: v} }
func Bool(v bool) Value    { return Value{Kind: KindBoolean, Boolean: v} }
func Null() Value          { return Value{Kind: KindNull} }

func StrSet(items ...string) Value {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return Value{Kind: KindStringSet, StringSet: set}
}

func IntSetOf(items ...int64) Value {
	set := make(map[int64]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return Value{Kind: KindIntSet, IntSet: set}
}

// String renders a Value for diagnostics and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.Integer)
	case KindFloat:
		return fmt.Sprintf("Float(%g)", v.Float)
	case KindBoolean:
		return fmt.Sprintf("Boolean(%v)", v.Boolean)
	case KindStringSet:
		return fmt.Sprintf("StringSet(%d items)", len(v.StringSet))
	case KindIntSet:
		return fmt.Sprintf("IntSet(%d items)", len(v.IntSet))
	case KindNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// Equal reports deep equality between two values of the same kind.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInteger:
		return v.Integer == o.Integer
	case KindFloat:
		return v.Float == o.Float
	case KindBoolean:
		return v.Boolean == o.Boolean
	case KindStringSet:
		if len(v.StringSet) != len(o.StringSet) {
			return false
		}
		for k := range v.StringSet {
			if _, ok := o.StringSet[k]; !ok {
				return false
			}
		}
		return true
	case KindIntSet:
		if len(v.IntSet) != len(o.IntSet) {
			return false
		}
		for k := range v.IntSet {
			if _, ok := o.IntSet[k]; !ok {
				return false
			}
		}
		return true
	case KindNull:
		return true
	default:
		return false
	}
}
