// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package tracer implements judgment.Tracer: the base tracer (component H)
// that creates spans, runs the lifecycle processor chain on start, enqueues
// ended spans to the batch processor, and submits evaluation requests.
package tracer

import (
	"context"
	"encoding/json"

	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/internal/batch"
	"github.com/JudgmentLabs/judgeval-go/internal/lifecycle"
	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// Tracer is the concrete, platform-wired judgment.Tracer implementation.
type Tracer struct {
	cfg   Config
	batch *batch.Processor
}

// New builds a Tracer and starts its batch processor's background flush
// loop. Callers normally reach this indirectly through judgeval.Start.
func New(cfg Config) *Tracer {
	cfg = cfg.withDefaults()
	cfg.BatchConfig.Exporter = cfg.Exporter
	return &Tracer{cfg: cfg, batch: batch.NewProcessor(cfg.BatchConfig)}
}

var _ judgment.Tracer = (*Tracer)(nil)

// Span starts a span without activating it; SetEndHook wires it to the
// lifecycle end-chain and the batch queue regardless of how the caller ends
// it.
func (t *Tracer) Span(ctx context.Context, name string, opts ...judgment.SpanOption) (*judgment.Span, context.Context) {
	parent, _ := judgment.Active(ctx)
	var span *judgment.Span
	if parent != nil {
		span = judgment.NewChildSpan(parent, name, opts...)
	} else {
		span = judgment.NewRootSpan(name, opts...)
	}
	lifecycle.Chain(t.cfg.Processors, span, parent)
	span.SetEndHook(t.onSpanEnd)
	return span, judgment.WithSpan(ctx, span)
}

func (t *Tracer) onSpanEnd(span *judgment.Span) {
	lifecycle.ChainEnd(t.cfg.Processors, span)
	t.batch.Enqueue(span)
}

// With starts a span, installs it as active for fn's dynamic extent, and
// ends it on return.
func (t *Tracer) With(ctx context.Context, name string, fn func(context.Context, *judgment.Span) error, opts ...judgment.SpanOption) error {
	span, spanCtx := t.Span(ctx, name, opts...)
	return judgment.UseSpan(spanCtx, span, true, true, true, func(c context.Context) error { return fn(c, span) })
}

// SetInput serializes data and attaches it as the active span's input.
func (t *Tracer) SetInput(ctx context.Context, data any) { setIO(ctx, ext.Input, data) }

// SetOutput serializes data and attaches it as the active span's output.
func (t *Tracer) SetOutput(ctx context.Context, data any) { setIO(ctx, ext.Output, data) }

func setIO(ctx context.Context, key string, data any) {
	span, ok := judgment.Active(ctx)
	if !ok {
		return
	}
	span.SetAttribute(key, data)
}

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
func (t *Tracer) SetLLMSpan(ctx context.Context) { setKind(ctx, ext.KindLLM) }

// SetToolSpan marks the active span as a tool-kind span.
func (t *Tracer) SetToolSpan(ctx context.Context) { setKind(ctx, ext.KindTool) }

// SetGeneralSpan marks the active span as a general span.
func (t *Tracer) SetGeneralSpan(ctx context.Context) { setKind(ctx, ext.KindSpan) }

func setKind(ctx context.Context, kind ext.SpanKindValue) {
	if span, ok := judgment.Active(ctx); ok {
		span.SetKind(kind)
	}
}

// SetCustomerID attaches a customer id to the active span; lifecycle
// processors propagate it to descendant spans.
func (t *Tracer) SetCustomerID(ctx context.Context, id string) { setIO(ctx, ext.CustomerID, id) }

// SetSessionID attaches a session id to the active span; lifecycle
// processors propagate it to descendant spans.
func (t *Tracer) SetSessionID(ctx context.Context, id string) { setIO(ctx, ext.SessionID, id) }

// AsyncEvaluate enqueues an example-evaluation run against the active span,
// fire-and-forget. A no-op when there is no active span, the active span is
// not sampled, or evaluation submission is disabled.
func (t *Tracer) AsyncEvaluate(ctx context.Context, scorer eval.ScorerConfig, example *eval.Example) {
	span, ok := t.sampledActive(ctx)
	if !ok {
		return
	}
	evalName := ext.AsyncEvalNamePrefix + span.SpanID().String()
	run := eval.NewExampleRun(t.cfg.ProjectName, evalName, span.TraceID().String(), span.SpanID().String(), example, []eval.ScorerConfig{scorer})
	client := t.cfg.APIClient
	if client == nil {
		return
	}
	go func() {
		if err := client.AddToRunEvalQueueExamples(context.Background(), t.cfg.ProjectID, run); err != nil {
			log.Error("judgment: async evaluate: %v", err)
		}
	}()
}

// AsyncTraceEvaluate serializes a trace-evaluation run onto the active
// span's pending-trace-eval attribute; the backend runs it after export.
// Same sampling/enable gating as AsyncEvaluate.
func (t *Tracer) AsyncTraceEvaluate(ctx context.Context, scorer eval.ScorerConfig) {
	span, ok := t.sampledActive(ctx)
	if !ok {
		return
	}
	evalName := ext.AsyncTraceEvalNamePrefix + span.SpanID().String()
	refs := []eval.TraceSpanRef{{TraceID: span.TraceID().String(), SpanID: span.SpanID().String()}}
	run := eval.NewTraceRun(t.cfg.ProjectName, evalName, refs, []eval.ScorerConfig{scorer})
	payload, err := json.Marshal(run)
	if err != nil {
		log.Error("judgment: async trace evaluate: encode run: %v", err)
		return
	}
	span.SetAttribute(ext.PendingTraceEval, string(payload))
}

func (t *Tracer) sampledActive(ctx context.Context) (*judgment.Span, bool) {
	if !t.cfg.EnableEvaluation {
		return nil, false
	}
	span, ok := judgment.Active(ctx)
	if !ok || !span.Sampled() {
		return nil, false
	}
	return span, true
}

// ForceFlush drains and exports every queued span, blocking until done.
func (t *Tracer) ForceFlush(ctx context.Context) error { return t.batch.ForceFlush(ctx) }

// Shutdown force-flushes then stops the background flush loop. Safe to
// call more than once.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.batch.Shutdown(ctx)
}
