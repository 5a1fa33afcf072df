package parquetcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSchema() []ColumnSchema {
	return []ColumnSchema{
		{Name: "id", Type: Int64},
		{Name: "name", Type: String},
		{Name: "score", Type: Float64},
		{Name: "active", Type: Boolean, Nullable: true},
	}
}

func sampleBatch() Batch {
	return Batch{
		TableName: "widgets",
		Schema:    sampleSchema(),
		Rows: []Row{
			{"id": int64(1), "name": "alpha", "score": 1.5, "active": true},
			{"id": int64(2), "name": "beta", "score": 2.5, "active": false},
			{"id": int64(3), "name": "gamma", "score": 3.5, "active": nil},
		},
	}
}

func TestEncodeRejectsEmptyBatch(t *testing.T) {
	_, err := Encode(Batch{TableName: "t", Schema: sampleSchema()}, CompressionZstd)
	require.Error(t, err)
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionZstd)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded.Rows, 3)
	require.Equal(t, int64(1), decoded.Rows[0]["id"])
	require.Equal(t, "beta", decoded.Rows[1]["name"])
	require.Nil(t, decoded.Rows[2]["active"])
}

func TestDecodeEmptyFileFails(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)
	_, err = Decode(data)
	require.NoError(t, err)

	_, err = Decode(nil)
	require.Error(t, err)
}

func TestDecodeColumnsByNameProjects(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionSnappy)
	require.NoError(t, err)

	batch, err := DecodeColumnsByName(data, []string{"name", "score"})
	require.NoError(t, err)
	require.Len(t, batch.Schema, 2)
	require.Equal(t, "alpha", batch.Rows[0]["name"])
	require.Equal(t, 1.5, batch.Rows[0]["score"])
	_, hasID := batch.Rows[0]["id"]
	require.False(t, hasID)
}

func TestDecodeColumnsByNameRejectsUnknownColumn(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)
	_, err = DecodeColumnsByName(data, []string{"nope"})
	require.Error(t, err)
}

func TestDecodeColumnsByIndex(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)
	batch, err := DecodeColumns(data, []int{0, 2})
	require.NoError(t, err)
	require.Equal(t, []string{"id", "score"}, schemaNames(batch.Schema))
}

func TestDecodeWithFilterEquality(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)

	batch, err := DecodeWithFilter(data, []Filter{{Column: "name", Op: OpEqual, Scalar: "beta"}}, nil)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, int64(2), batch.Rows[0]["id"])
}

func TestDecodeWithFilterProjectsOutput(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)

	batch, err := DecodeWithFilter(data, []Filter{{Column: "score", Op: OpGreater, Scalar: 2.0}}, []string{"name"})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)
	for _, row := range batch.Rows {
		require.Len(t, row, 1)
	}
}

func TestDecodeWithFilterRejectsUnknownColumn(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)
	_, err = DecodeWithFilter(data, []Filter{{Column: "missing", Op: OpEqual, Scalar: 1}}, nil)
	require.Error(t, err)
}

func TestGetPruningStatsReturnsTotals(t *testing.T) {
	data, err := Encode(sampleBatch(), CompressionNone)
	require.NoError(t, err)

	stats, err := GetPruningStats(data, []Filter{{Column: "id", Op: OpEqual, Scalar: int64(2)}})
	require.NoError(t, err)
	require.Equal(t, stats.Kept+stats.Pruned, stats.Total)
}

func TestEncodeBatchesParallelizes(t *testing.T) {
	batches := []Batch{sampleBatch(), sampleBatch()}
	out, err := EncodeBatches(batches, CompressionZstd)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, data := range out {
		require.NotEmpty(t, data)
	}
}
