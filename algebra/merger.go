package algebra

import (
	"fmt"
	"math"
)

// Outcome tags the result of a merge attempt.
type Outcome int

const (
	OutcomeMerged Outcome = iota
	OutcomeConflict
	OutcomeTypeMismatch
)

// MergeResult is the result of AlgebraicMerger.Merge: exactly one of Value
// (when Outcome == OutcomeMerged) or Reason (otherwise) is meaningful.
type MergeResult struct {
	Outcome Outcome
	Value   Value
	Reason  string
}

func merged(v Value) MergeResult {
	return MergeResult{Outcome: OutcomeMerged, Value: v}
}

func conflict(reason string) MergeResult {
	return MergeResult{Outcome: OutcomeConflict, Reason: reason}
}

func typeMismatch(reason string) MergeResult {
	return MergeResult{Outcome: OutcomeTypeMismatch, Reason: reason}
}

// Merge merges a and b under opType's contract (spec.md §4.7's table). The
// merger is commutative and associative on its own op-type for every
// conflict-free OpType; GenericOverwrite/GenericConditional/Unknown always
// conflict except exact-equal overwrite.
func Merge(opType OpType, a, b Value) MergeResult {
	if a.Kind == KindNull {
		return merged(b)
	}
	if b.Kind == KindNull {
		return merged(a)
	}

	switch opType {
	case SemilatticeMax:
		return mergeSemilattice(a, b, func(x, y int64) int64 {
			if x > y {
				return x
			}
			return y
		}, math.Max, true)
	case SemilatticeMin:
		return mergeSemilattice(a, b, func(x, y int64) int64 {
			if x < y {
				return x
			}
			return y
		}, math.Min, false)
	case SemilatticeUnion:
		return mergeSets(a, b, true)
	case SemilatticeIntersect:
		return mergeSets(a, b, false)
	case AbelianAdd:
		return mergeAbelian(a, b, "AbelianAdd", addChecked, func(x, y float64) float64 { return x + y })
	case AbelianMultiply:
		return mergeAbelian(a, b, "AbelianMultiply", mulChecked, func(x, y float64) float64 { return x * y })
	case GenericOverwrite:
		if a.Equal(b) {
			return merged(a)
		}
		return conflict(fmt.Sprintf("GenericOverwrite: %s != %s", a, b))
	case GenericConditional:
		return conflict("GenericConditional values always conflict")
	default:
		return conflict("Unknown op type values always conflict")
	}
}

// mergeSemilattice implements SemilatticeMax/Min. For scalars it applies
// intOp/floatOp directly. For sets of integers the spec calls for a
// "componentwise" merge; since IntSet is a membership set, not an indexed
// vector, componentwise-max is interpreted as "an element survives if it is
// present on the higher side" (union) and componentwise-min as "an element
// survives only if present on both" (intersection) — see DESIGN.md's Open
// Question resolution for this interpretation.
func mergeSemilattice(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64, maxLike bool) MergeResult {
	if a.Kind != b.Kind {
		return typeMismatch(fmt.Sprintf("mismatched kinds %v and %v", a.Kind, b.Kind))
	}
	switch a.Kind {
	case KindInteger:
		return merged(Int(intOp(a.Integer, b.Integer)))
	case KindFloat:
		return merged(Flt(floatOp(a.Float, b.Float)))
	case KindIntSet:
		out := map[int64]struct{}{}
		if maxLike {
			for k := range a.IntSet {
				out[k] = struct{}{}
			}
			for k := range b.IntSet {
				out[k] = struct{}{}
			}
		} else {
			for k := range a.IntSet {
				if _, ok := b.IntSet[k]; ok {
					out[k] = struct{}{}
				}
			}
		}
		return merged(Value{Kind: KindIntSet, IntSet: out})
	case KindBoolean:
		return typeMismatch("SemilatticeMax/Min is ill-defined over booleans")
	default:
		return typeMismatch(fmt.Sprintf("SemilatticeMax/Min not defined for %v", a.Kind))
	}
}

func mergeSets(a, b Value, union bool) MergeResult {
	if a.Kind != b.Kind {
		return typeMismatch(fmt.Sprintf("mismatched kinds %v and %v", a.Kind, b.Kind))
	}
	switch a.Kind {
	case KindStringSet:
		out := map[string]struct{}{}
		if union {
			for k := range a.StringSet {
				out[k] = struct{}{}
			}
			for k := range b.StringSet {
				out[k] = struct{}{}
			}
		} else {
			for k := range a.StringSet {
				if _, ok := b.StringSet[k]; ok {
					out[k] = struct{}{}
				}
			}
		}
		return merged(Value{Kind: KindStringSet, StringSet: out})
	case KindIntSet:
		out := map[int64]struct{}{}
		if union {
			for k := range a.IntSet {
				out[k] = struct{}{}
			}
			for k := range b.IntSet {
				out[k] = struct{}{}
			}
		} else {
			for k := range a.IntSet {
				if _, ok := b.IntSet[k]; ok {
					out[k] = struct{}{}
				}
			}
		}
		return merged(Value{Kind: KindIntSet, IntSet: out})
	default:
		return typeMismatch(fmt.Sprintf("SemilatticeUnion/Intersect requires a set type, got %v", a.Kind))
	}
}

func mergeAbelian(a, b Value, name string, intOp func(int64, int64) (int64, bool), floatOp func(float64, float64) float64) MergeResult {
	if a.Kind != b.Kind {
		return typeMismatch(fmt.Sprintf("mismatched kinds %v and %v", a.Kind, b.Kind))
	}
	switch a.Kind {
	case KindInteger:
		result, ok := intOp(a.Integer, b.Integer)
		if !ok {
			return conflict(fmt.Sprintf("%s overflowed int64", name))
		}
		return merged(Int(result))
	case KindFloat:
		return merged(Flt(floatOp(a.Float, b.Float)))
	default:
		return typeMismatch(fmt.Sprintf("%s requires a numeric type, got %v", name, a.Kind))
	}
}

// addChecked and mulChecked implement the checked overflow policy
// documented in DESIGN.md's Open Question resolution: arithmetic that
// would overflow int64 reports a conflict instead of wrapping/saturating.
func addChecked(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulChecked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}
