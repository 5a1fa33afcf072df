package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbelianAddCommutativeAssociative(t *testing.T) {
	a, b, c := Int(3), Int(5), Int(7)

	ab := Merge(AbelianAdd, a, b)
	ba := Merge(AbelianAdd, b, a)
	require.Equal(t, OutcomeMerged, ab.Outcome)
	require.True(t, ab.Value.Equal(ba.Value))

	left := Merge(AbelianAdd, Merge(AbelianAdd, a, b).Value, c)
	right := Merge(AbelianAdd, a, Merge(AbelianAdd, b, c).Value)
	require.True(t, left.Value.Equal(right.Value))
}

func TestAbelianAddOverflowConflicts(t *testing.T) {
	res := Merge(AbelianAdd, Int(9223372036854775807), Int(1))
	require.Equal(t, OutcomeConflict, res.Outcome)
}

func TestAbelianMultiplyOverflowConflicts(t *testing.T) {
	res := Merge(AbelianMultiply, Int(9223372036854775807), Int(2))
	require.Equal(t, OutcomeConflict, res.Outcome)
}

func TestSemilatticeMaxIdempotent(t *testing.T) {
	v := Int(42)
	res := Merge(SemilatticeMax, v, v)
	require.Equal(t, OutcomeMerged, res.Outcome)
	require.True(t, res.Value.Equal(v))
}

func TestSemilatticeMaxBooleanTypeMismatch(t *testing.T) {
	res := Merge(SemilatticeMax, Bool(true), Bool(false))
	require.Equal(t, OutcomeTypeMismatch, res.Outcome)
}

func TestSemilatticeUnionIntersect(t *testing.T) {
	a := StrSet("x", "y")
	b := StrSet("y", "z")

	union := Merge(SemilatticeUnion, a, b)
	require.Equal(t, OutcomeMerged, union.Outcome)
	require.Len(t, union.Value.StringSet, 3)

	intersect := Merge(SemilatticeIntersect, a, b)
	require.Equal(t, OutcomeMerged, intersect.Outcome)
	require.Len(t, intersect.Value.StringSet, 1)
}

func TestGenericOverwriteConflictsUnlessEqual(t *testing.T) {
	res := Merge(GenericOverwrite, Int(1), Int(1))
	require.Equal(t, OutcomeMerged, res.Outcome)

	res2 := Merge(GenericOverwrite, Int(1), Int(2))
	require.Equal(t, OutcomeConflict, res2.Outcome)
}

func TestGenericConditionalAlwaysConflicts(t *testing.T) {
	res := Merge(GenericConditional, Int(1), Int(1))
	require.Equal(t, OutcomeConflict, res.Outcome)
}

func TestUnknownAlwaysConflicts(t *testing.T) {
	res := Merge(Unknown, Int(1), Int(1))
	require.Equal(t, OutcomeConflict, res.Outcome)
}

func TestNullIsIdentity(t *testing.T) {
	res := Merge(AbelianAdd, Null(), Int(5))
	require.Equal(t, OutcomeMerged, res.Outcome)
	require.True(t, res.Value.Equal(Int(5)))
}

func TestSchemaDigestDeterministic(t *testing.T) {
	schema := TableSchema{DefaultOpType: Unknown, Columns: map[string]OpType{
		"a": AbelianAdd,
		"b": SemilatticeMax,
	}}
	d1, err := Digest(schema)
	require.NoError(t, err)
	d2, err := Digest(schema)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register("metrics", AllAdditive([]string{"views", "clicks"}))

	require.Equal(t, AbelianAdd, r.GetOpType("metrics", "views"))
	require.Equal(t, AbelianAdd, r.GetOpType("metrics", "unlisted_column"))
	require.Equal(t, Unknown, r.GetOpType("unregistered_table", "x"))

	require.True(t, r.CanAutoMerge("metrics", []string{"views", "clicks"}))
}

func TestCanAutoMergeChecksDefaultOpTypeWithNoExplicitColumns(t *testing.T) {
	r := NewRegistry()
	r.Register("events", TableSchema{DefaultOpType: GenericOverwrite})

	require.False(t, r.CanAutoMerge("events", nil))
	require.Empty(t, r.Columns("events"))

	r.Register("counters", TableSchema{DefaultOpType: AbelianAdd})
	require.True(t, r.CanAutoMerge("counters", nil))
}
