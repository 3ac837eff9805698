// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package mocktracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

func TestWithRecordsFinishedSpan(t *testing.T) {
	tr := New()

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.SetInput(ctx, "in")
		tr.SetOutput(ctx, "out")
		return nil
	})
	require.NoError(t, err)

	spans := tr.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name())

	in, ok := spans[0].Attribute(ext.Input)
	require.True(t, ok)
	assert.Equal(t, "in", in)
}

func TestSessionInheritanceViaLifecycleProcessors(t *testing.T) {
	tr := New()

	err := tr.With(context.Background(), "outer", func(ctx context.Context, _ *judgment.Span) error {
		tr.SetSessionID(ctx, "sess-1")
		return tr.With(ctx, "inner", func(context.Context, *judgment.Span) error { return nil })
	})
	require.NoError(t, err)

	var inner *judgment.Span
	for _, s := range tr.FinishedSpans() {
		if s.Name() == "inner" {
			inner = s
		}
	}
	require.NotNil(t, inner)
	v, ok := inner.Attribute(ext.SessionID)
	require.True(t, ok)
	assert.Equal(t, "sess-1", v)
}

func TestAsyncEvaluateRecordsCallWhenSampled(t *testing.T) {
	tr := New()
	example := eval.NewExample(map[string]any{"input": "hi"})

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncEvaluate(ctx, eval.ScorerConfig{Name: "faithfulness"}, example)
		return nil
	})
	require.NoError(t, err)

	calls := tr.EvaluateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "faithfulness", calls[0].Scorer.Name)
	assert.Same(t, example, calls[0].Example)
}

func TestAsyncEvaluateSkippedWhenUnsampled(t *testing.T) {
	tr := New()

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncEvaluate(ctx, eval.ScorerConfig{Name: "faithfulness"}, eval.NewExample(nil))
		return nil
	}, judgment.WithSampled(false))
	require.NoError(t, err)

	assert.Empty(t, tr.EvaluateCalls())
}

func TestAsyncTraceEvaluateRecordsCall(t *testing.T) {
	tr := New()

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncTraceEvaluate(ctx, eval.ScorerConfig{Name: "relevance"})
		return nil
	})
	require.NoError(t, err)

	calls := tr.TraceEvaluateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "relevance", calls[0].Scorer.Name)
}

func TestResetClearsRecordedState(t *testing.T) {
	tr := New()
	_ = tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncEvaluate(ctx, eval.ScorerConfig{Name: "x"}, eval.NewExample(nil))
		return nil
	})
	require.NotEmpty(t, tr.FinishedSpans())
	require.NotEmpty(t, tr.EvaluateCalls())

	tr.Reset()
	assert.Empty(t, tr.FinishedSpans())
	assert.Empty(t, tr.EvaluateCalls())
	assert.Empty(t, tr.TraceEvaluateCalls())
}

func TestSetLLMSpanMarksKind(t *testing.T) {
	tr := New()
	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.SetLLMSpan(ctx)
		return nil
	})
	require.NoError(t, err)

	spans := tr.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, ext.KindLLM, spans[0].Kind())
}

func TestForceFlushAndShutdownAreNoops(t *testing.T) {
	tr := New()
	assert.NoError(t, tr.ForceFlush(context.Background()))
	assert.NoError(t, tr.Shutdown(context.Background()))
}
