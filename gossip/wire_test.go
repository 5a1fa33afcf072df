package gossip

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/localcommit"
	"github.com/rhizodata/rhizo/vectorclock"
)

func TestMarshalUnmarshalUpdateRoundtrip(t *testing.T) {
	update := localcommit.VersionedUpdate{
		Operations: []localcommit.Operation{
			{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(42)},
			{Key: "tags", OpType: algebra.SemilatticeUnion, Value: algebra.StrSet("a", "b")},
			{Key: "score", OpType: algebra.SemilatticeMax, Value: algebra.Flt(3.5)},
			{Key: "flag", OpType: algebra.GenericOverwrite, Value: algebra.Bool(true)},
		},
		Clock:    vectorclock.FromMap(map[string]uint64{"n1": 3, "n2": 1}),
		Origin:   "n1",
		UpdateID: "abc-123",
	}

	data, err := marshalUpdate(update)
	require.NoError(t, err)

	decoded, err := unmarshalUpdate(data)
	require.NoError(t, err)

	require.Equal(t, update.Origin, decoded.Origin)
	require.Equal(t, update.UpdateID, decoded.UpdateID)
	require.True(t, vectorclock.Equal(update.Clock, decoded.Clock))
	require.Len(t, decoded.Operations, len(update.Operations))
	for i, op := range update.Operations {
		require.Equal(t, op.Key, decoded.Operations[i].Key)
		require.Equal(t, op.OpType, decoded.Operations[i].OpType)
		require.True(t, op.Value.Equal(decoded.Operations[i].Value))
	}
}

func TestUnmarshalUpdateRejectsUnknownOpType(t *testing.T) {
	_, err := unmarshalUpdate([]byte(`{"operations":[{"key":"k","op_type":"NotAThing","value":{"kind":"integer"}}],"clock":{},"origin":"n1"}`))
	require.Error(t, err)
}

func TestUnmarshalUpdateRejectsUnknownValueKind(t *testing.T) {
	_, err := unmarshalUpdate([]byte(`{"operations":[{"key":"k","op_type":"AbelianAdd","value":{"kind":"imaginary"}}],"clock":{},"origin":"n1"}`))
	require.Error(t, err)
}

func TestUnmarshalUpdateRejectsMalformedJSON(t *testing.T) {
	_, err := unmarshalUpdate([]byte(`not json`))
	require.Error(t, err)
}
