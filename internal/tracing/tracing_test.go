package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansAreExported(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("alchemist-test", exporter))

	ctx, parent := StartSpan(context.Background(), "parent", map[string]string{"kind": "schedule"})
	_, child := StartSpan(ctx, "child", nil)
	child.SetInt("assignments", 3)
	child.End(errors.New("boom"))
	parent.End(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Ok, spans[1].Status.Code)

	require.NoError(t, Shutdown(context.Background()))
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	s.SetAttributes(map[string]string{"a": "b"})
	s.SetInt("n", 1)
	s.End(nil)
}
