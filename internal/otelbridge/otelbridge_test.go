// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package otelbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/JudgmentLabs/judgeval-go/internal/jctx"
	"github.com/JudgmentLabs/judgeval-go/judgment"
)

func TestUngatedContextDelegatesToFallback(t *testing.T) {
	fallback := &recordingProvider{}
	provider := Install(fallback)
	tracer := provider.Tracer("test")

	_, span := tracer.Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, 1, fallback.startCount)
}

func TestGatedContextJoinsJudgevalTrace(t *testing.T) {
	provider := Install(nil)
	tracer := provider.Tracer("test")

	parent := judgment.NewRootSpan("root")
	defer parent.End()
	ctx := jctx.WithGate(judgment.WithSpan(context.Background(), parent))

	newCtx, span := tracer.Start(ctx, "child")
	defer span.End()

	active, ok := judgment.Active(newCtx)
	require.True(t, ok)
	parentID, hasParent := active.ParentSpanID()
	require.True(t, hasParent)
	assert.Equal(t, parent.SpanID(), parentID)
	assert.Equal(t, parent.TraceID(), active.TraceID())
}

func TestBridgeSpanReflectsJudgevalSpan(t *testing.T) {
	provider := Install(nil)
	tracer := provider.Tracer("test")

	ctx := jctx.WithGate(context.Background())
	_, span := tracer.Start(ctx, "solo")
	span.SetAttributes()
	assert.True(t, span.IsRecording())

	sc := span.SpanContext()
	assert.True(t, sc.TraceID().IsValid())
	assert.True(t, sc.IsSampled())

	span.End()
	assert.False(t, span.IsRecording())
}

type recordingProvider struct {
	startCount int
}

func (p *recordingProvider) Tracer(string, ...oteltrace.TracerOption) oteltrace.Tracer {
	return &recordingTracer{p}
}

type recordingTracer struct {
	p *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	t.p.startCount++
	return oteltrace.NewNoopTracerProvider().Tracer("x").Start(ctx, name, opts...)
}
