package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopTracerStartSpanNeverPanics(t *testing.T) {
	tracer := NewNoopTracer()
	require.NotNil(t, tracer)

	span := StartSpan(tracer, nil, "chunkstore.Put")
	require.NotNil(t, span)
	span.Finish()

	parent := tracer.StartSpan("txn.Commit")
	child := StartSpan(tracer, parent.Context(), "txn.Commit.validate")
	require.NotNil(t, child)
	child.Finish()
	parent.Finish()
}
