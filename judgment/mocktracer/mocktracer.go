// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package mocktracer provides an in-memory judgment.Tracer for tests: it
// runs the real lifecycle processor chain and records every span that ends,
// plus every evaluation submission, without any network traffic.
package mocktracer

import (
	"context"
	"sync"

	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/internal/lifecycle"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// EvaluateCall records one AsyncEvaluate invocation.
type EvaluateCall struct {
	Scorer  eval.ScorerConfig
	Example *eval.Example
	SpanID  string
	TraceID string
}

// TraceEvaluateCall records one AsyncTraceEvaluate invocation.
type TraceEvaluateCall struct {
	Scorer  eval.ScorerConfig
	SpanID  string
	TraceID string
}

// Tracer is a judgment.Tracer that records instead of exporting.
type Tracer struct {
	Processors       []lifecycle.Processor
	EnableEvaluation bool

	mu              sync.Mutex
	finished        []*judgment.Span
	evaluateCalls   []EvaluateCall
	traceEvalCalls  []TraceEvaluateCall
}

var _ judgment.Tracer = (*Tracer)(nil)

// New returns a Tracer with the default lifecycle chain and evaluation
// enabled.
func New() *Tracer {
	return &Tracer{Processors: lifecycle.Default(), EnableEvaluation: true}
}

// FinishedSpans returns every span that has ended so far, oldest first.
func (t *Tracer) FinishedSpans() []*judgment.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*judgment.Span, len(t.finished))
	copy(out, t.finished)
	return out
}

// EvaluateCalls returns every AsyncEvaluate invocation recorded so far.
func (t *Tracer) EvaluateCalls() []EvaluateCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]EvaluateCall, len(t.evaluateCalls))
	copy(out, t.evaluateCalls)
	return out
}

// TraceEvaluateCalls returns every AsyncTraceEvaluate invocation recorded so
// far.
func (t *Tracer) TraceEvaluateCalls() []TraceEvaluateCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvaluateCall, len(t.traceEvalCalls))
	copy(out, t.traceEvalCalls)
	return out
}

// Reset clears every recorded span and evaluation call.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = nil
	t.evaluateCalls = nil
	t.traceEvalCalls = nil
}

// Span starts a span and wires it to record itself into the Tracer on End.
func (t *Tracer) Span(ctx context.Context, name string, opts ...judgment.SpanOption) (*judgment.Span, context.Context) {
	parent, _ := judgment.Active(ctx)
	var span *judgment.Span
	if parent != nil {
		span = judgment.NewChildSpan(parent, name, opts...)
	} else {
		span = judgment.NewRootSpan(name, opts...)
	}
	lifecycle.Chain(t.Processors, span, parent)
	span.SetEndHook(t.onSpanEnd)
	return span, judgment.WithSpan(ctx, span)
}

func (t *Tracer) onSpanEnd(span *judgment.Span) {
	lifecycle.ChainEnd(t.Processors, span)
	t.mu.Lock()
	t.finished = append(t.finished, span)
	t.mu.Unlock()
}

// With starts a span, installs it as active for fn's dynamic extent, and
// ends it on return.
func (t *Tracer) With(ctx context.Context, name string, fn func(context.Context, *judgment.Span) error, opts ...judgment.SpanOption) error {
	span, spanCtx := t.Span(ctx, name, opts...)
	return judgment.UseSpan(spanCtx, span, true, true, true, func(c context.Context) error { return fn(c, span) })
}

// SetInput attaches data as the active span's input attribute.
func (t *Tracer) SetInput(ctx context.Context, data any) { t.SetAttribute(ctx, ext.Input, data) }

// SetOutput attaches data as the active span's output attribute.
func (t *Tracer) SetOutput(ctx context.Context, data any) { t.SetAttribute(ctx, ext.Output, data) }

// SetAttribute attaches a single attribute to the active span.
func (t *Tracer) SetAttribute(ctx context.Context, key string, value any) bool {
	span, ok := judgment.Active(ctx)
	if !ok {
		return false
	}
	return span.SetAttribute(key, value)
}

// SetAttributes attaches every entry of attrs to the active span.
func (t *Tracer) SetAttributes(ctx context.Context, attrs map[string]any) {
	if span, ok := judgment.Active(ctx); ok {
		span.SetAttributes(attrs)
	}
}

// SetLLMSpan marks the active span as an LLM-kind span.
func (t *Tracer) SetLLMSpan(ctx context.Context) {
	if span, ok := judgment.Active(ctx); ok {
		span.SetKind(ext.KindLLM)
	}
}

// SetToolSpan marks the active span as a tool-kind span.
func (t *Tracer) SetToolSpan(ctx context.Context) {
	if span, ok := judgment.Active(ctx); ok {
		span.SetKind(ext.KindTool)
	}
}

// SetGeneralSpan marks the active span as a general span.
func (t *Tracer) SetGeneralSpan(ctx context.Context) {
	if span, ok := judgment.Active(ctx); ok {
		span.SetKind(ext.KindSpan)
	}
}

// SetCustomerID attaches a customer id to the active span.
func (t *Tracer) SetCustomerID(ctx context.Context, id string) { t.SetAttribute(ctx, ext.CustomerID, id) }

// SetSessionID attaches a session id to the active span.
func (t *Tracer) SetSessionID(ctx context.Context, id string) { t.SetAttribute(ctx, ext.SessionID, id) }

// AsyncEvaluate records the call instead of making an HTTP request. A no-op
// when there is no active sampled span or evaluation is disabled.
func (t *Tracer) AsyncEvaluate(ctx context.Context, scorer eval.ScorerConfig, example *eval.Example) {
	span, ok := t.sampledActive(ctx)
	if !ok {
		return
	}
	t.mu.Lock()
	t.evaluateCalls = append(t.evaluateCalls, EvaluateCall{
		Scorer: scorer, Example: example,
		SpanID: span.SpanID().String(), TraceID: span.TraceID().String(),
	})
	t.mu.Unlock()
}

// AsyncTraceEvaluate records the call instead of stamping the pending-eval
// attribute. Same gating as AsyncEvaluate.
func (t *Tracer) AsyncTraceEvaluate(ctx context.Context, scorer eval.ScorerConfig) {
	span, ok := t.sampledActive(ctx)
	if !ok {
		return
	}
	t.mu.Lock()
	t.traceEvalCalls = append(t.traceEvalCalls, TraceEvaluateCall{
		Scorer: scorer, SpanID: span.SpanID().String(), TraceID: span.TraceID().String(),
	})
	t.mu.Unlock()
}

func (t *Tracer) sampledActive(ctx context.Context) (*judgment.Span, bool) {
	if !t.EnableEvaluation {
		return nil, false
	}
	span, ok := judgment.Active(ctx)
	if !ok || !span.Sampled() {
		return nil, false
	}
	return span, true
}

// ForceFlush is a no-op: there is nothing queued to drain.
func (t *Tracer) ForceFlush(context.Context) error { return nil }

// Shutdown is a no-op.
func (t *Tracer) Shutdown(context.Context) error { return nil }
