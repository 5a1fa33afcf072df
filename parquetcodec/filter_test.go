package parquetcodec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareFloatNaNOnlyNotEqual(t *testing.T) {
	nan := math.NaN()
	require.True(t, compareFloat(nan, 1.0, OpNotEqual))
	require.False(t, compareFloat(nan, 1.0, OpEqual))
	require.False(t, compareFloat(nan, 1.0, OpLess))
	require.False(t, compareFloat(nan, 1.0, OpGreater))
}

func TestEvalOneBooleanRejectsOrderingOps(t *testing.T) {
	col := ColumnSchema{Name: "active", Type: Boolean}
	_, err := evalOne(col, true, Filter{Column: "active", Op: OpGreater, Scalar: false})
	require.Error(t, err)

	ok, err := evalOne(col, true, Filter{Column: "active", Op: OpEqual, Scalar: true})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvalOneTypeMismatch(t *testing.T) {
	col := ColumnSchema{Name: "score", Type: Float64}
	_, err := evalOne(col, 1.0, Filter{Column: "score", Op: OpEqual, Scalar: "not a number"})
	require.Error(t, err)
}

func TestPruneRowGroupEqualityOutsideRange(t *testing.T) {
	col := ColumnSchema{Name: "id", Type: Int64}
	b := bounds{min: int64(10), max: int64(20), ok: true}
	require.True(t, pruneRowGroup(b, Filter{Column: "id", Op: OpEqual, Scalar: int64(5)}, col))
	require.False(t, pruneRowGroup(b, Filter{Column: "id", Op: OpEqual, Scalar: int64(15)}, col))
}

func TestPruneRowGroupNotEqualOnlyWhenConstant(t *testing.T) {
	col := ColumnSchema{Name: "id", Type: Int64}
	constant := bounds{min: int64(7), max: int64(7), ok: true}
	require.True(t, pruneRowGroup(constant, Filter{Column: "id", Op: OpNotEqual, Scalar: int64(7)}, col))

	varying := bounds{min: int64(7), max: int64(9), ok: true}
	require.False(t, pruneRowGroup(varying, Filter{Column: "id", Op: OpNotEqual, Scalar: int64(7)}, col))
}

func TestPruneRowGroupGreaterThan(t *testing.T) {
	col := ColumnSchema{Name: "id", Type: Int64}
	b := bounds{min: int64(1), max: int64(10), ok: true}
	require.True(t, pruneRowGroup(b, Filter{Column: "id", Op: OpGreater, Scalar: int64(10)}, col))
	require.False(t, pruneRowGroup(b, Filter{Column: "id", Op: OpGreater, Scalar: int64(9)}, col))
}

func TestPruneRowGroupNeverPrunesWithoutStats(t *testing.T) {
	col := ColumnSchema{Name: "id", Type: Int64}
	require.False(t, pruneRowGroup(bounds{}, Filter{Column: "id", Op: OpEqual, Scalar: int64(5)}, col))
}
