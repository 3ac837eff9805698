// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package tracer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JudgmentLabs/judgeval-go/internal/api"
	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

type recordingExporter struct {
	mu    sync.Mutex
	spans []*judgment.Span
}

func (r *recordingExporter) Export(_ context.Context, spans []*judgment.Span) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, spans...)
	return nil
}

func (r *recordingExporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spans)
}

func newTestTracer(exp *recordingExporter) *Tracer {
	return New(Config{
		ProjectName: "proj",
		ProjectID:   "proj-1",
		Exporter:    exp,
	})
}

func TestWithCreatesAndEndsSpan(t *testing.T) {
	exp := &recordingExporter{}
	tr := newTestTracer(exp)
	defer tr.Shutdown(context.Background())

	err := tr.With(context.Background(), "op", func(ctx context.Context, span *judgment.Span) error {
		assert.False(t, span.IsEnded())
		tr.SetOutput(ctx, 42)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, tr.ForceFlush(context.Background()))
	require.Equal(t, 1, exp.count())
	out, ok := exp.spans[0].Attribute(ext.Output)
	require.True(t, ok)
	assert.Equal(t, 42, out)
}

func TestWithPropagatesNestedParentage(t *testing.T) {
	exp := &recordingExporter{}
	tr := newTestTracer(exp)
	defer tr.Shutdown(context.Background())

	var outerSpan, innerSpan *judgment.Span
	err := tr.With(context.Background(), "outer", func(ctx context.Context, outer *judgment.Span) error {
		outerSpan = outer
		return tr.With(ctx, "inner", func(_ context.Context, inner *judgment.Span) error {
			innerSpan = inner
			return nil
		})
	})
	require.NoError(t, err)

	parentSpanID, ok := innerSpan.ParentSpanID()
	require.True(t, ok)
	assert.Equal(t, outerSpan.SpanID(), parentSpanID)
	assert.Equal(t, outerSpan.TraceID(), innerSpan.TraceID())
}

func TestWithRecordsErrorAndStillEnds(t *testing.T) {
	exp := &recordingExporter{}
	tr := newTestTracer(exp)
	defer tr.Shutdown(context.Background())

	boom := errors.New("boom")
	err := tr.With(context.Background(), "op", func(context.Context, *judgment.Span) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, tr.ForceFlush(context.Background()))
	require.Equal(t, 1, exp.count())
	assert.Equal(t, judgment.StatusError, exp.spans[0].GetStatus().Code)
}

func TestSetAttributeWithoutActiveSpanIsNoop(t *testing.T) {
	tr := newTestTracer(&recordingExporter{})
	defer tr.Shutdown(context.Background())
	assert.False(t, tr.SetAttribute(context.Background(), "key", "value"))
}

func TestSessionIDInheritsToChildSpans(t *testing.T) {
	exp := &recordingExporter{}
	tr := newTestTracer(exp)
	defer tr.Shutdown(context.Background())

	err := tr.With(context.Background(), "outer", func(ctx context.Context, _ *judgment.Span) error {
		tr.SetSessionID(ctx, "sess-1")
		return tr.With(ctx, "inner", func(context.Context, *judgment.Span) error { return nil })
	})
	require.NoError(t, err)
	require.NoError(t, tr.ForceFlush(context.Background()))
	require.Len(t, exp.spans, 2)

	var inner *judgment.Span
	for _, s := range exp.spans {
		if s.Name() == "inner" {
			inner = s
		}
	}
	require.NotNil(t, inner)
	v, ok := inner.Attribute(ext.SessionID)
	require.True(t, ok)
	assert.Equal(t, "sess-1", v)
}

func TestAsyncEvaluateSkippedWhenNotSampled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "key", "org", nil)
	tr := New(Config{
		ProjectName:      "proj",
		ProjectID:        "proj-1",
		Exporter:         &recordingExporter{},
		APIClient:        client,
		EnableEvaluation: true,
	})
	defer tr.Shutdown(context.Background())

	err := tr.With(context.Background(), "op", func(ctx context.Context, span *judgment.Span) error {
		tr.AsyncEvaluate(ctx, eval.ScorerConfig{Name: "faithfulness"}, eval.NewExample(map[string]any{"input": "hi"}))
		return nil
	}, judgment.WithSampled(false))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}

func TestAsyncEvaluateSubmitsWhenSampled(t *testing.T) {
	var gotPath string
	var gotRun eval.Run
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotRun)
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "key", "org", nil)
	tr := New(Config{
		ProjectName:      "proj",
		ProjectID:        "proj-1",
		Exporter:         &recordingExporter{},
		APIClient:        client,
		EnableEvaluation: true,
	})
	defer tr.Shutdown(context.Background())

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncEvaluate(ctx, eval.ScorerConfig{Name: "faithfulness"}, eval.NewExample(map[string]any{"input": "hi"}))
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async evaluate request")
	}
	assert.Equal(t, ext.PathQueueExamples, gotPath)
	require.Len(t, gotRun.Examples, 1)
}

func TestAsyncTraceEvaluateAttachesPendingAttribute(t *testing.T) {
	exp := &recordingExporter{}
	tr := New(Config{
		ProjectName:      "proj",
		ProjectID:        "proj-1",
		Exporter:         exp,
		EnableEvaluation: true,
	})
	defer tr.Shutdown(context.Background())

	err := tr.With(context.Background(), "op", func(ctx context.Context, _ *judgment.Span) error {
		tr.AsyncTraceEvaluate(ctx, eval.ScorerConfig{Name: "relevance"})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, tr.ForceFlush(context.Background()))
	require.Len(t, exp.spans, 1)

	raw, ok := exp.spans[0].Attribute(ext.PendingTraceEval)
	require.True(t, ok)
	var run map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw.(string)), &run))
	assert.Equal(t, "relevance", run["judgment_scorers"].([]any)[0].(map[string]any)["name"])
}

func TestForceFlushAcrossConcurrentSpans(t *testing.T) {
	exp := &recordingExporter{}
	tr := newTestTracer(exp)
	defer tr.Shutdown(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.With(context.Background(), "op", func(context.Context, *judgment.Span) error { return nil })
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, tr.ForceFlush(context.Background()))
	assert.Equal(t, 1000, exp.count())
}
