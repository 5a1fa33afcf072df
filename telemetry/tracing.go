package telemetry

import (
	"io"

	"github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerlog "github.com/uber/jaeger-lib/metrics"
)

// NewTracer builds a Jaeger-backed opentracing.Tracer reporting to
// agentAddr (typically "localhost:6831"), constant-sampling every span.
// Callers that never configure telemetry get NewNoopTracer instead; this
// component is additive and nothing else in the core depends on it.
func NewTracer(serviceName, agentAddr string) (opentracing.Tracer, io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: agentAddr,
			LogSpans:           false,
		},
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Metrics(jaegerlog.NullFactory))
	if err != nil {
		return nil, nil, err
	}
	return tracer, closer, nil
}

// NewNoopTracer returns the default tracer used when no Jaeger agent is
// configured.
func NewNoopTracer() opentracing.Tracer {
	return opentracing.NoopTracer{}
}

// StartSpan starts a span named op under tracer, as a child of any span
// already active on ctx.
func StartSpan(tracer opentracing.Tracer, ctx opentracing.SpanContext, op string) opentracing.Span {
	if ctx == nil {
		return tracer.StartSpan(op)
	}
	return tracer.StartSpan(op, opentracing.ChildOf(ctx))
}
