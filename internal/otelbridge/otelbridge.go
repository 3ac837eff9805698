// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package otelbridge lets third-party code that calls the standard
// go.opentelemetry.io/otel API join a judgeval trace instead of talking to
// whatever tracer provider happened to be registered. Install builds a
// trace.TracerProvider for the caller to register with
// otel.SetTracerProvider (judgeval.Start does this); its Tracer().Start
// consults the incoming context.Context for a judgeval span gate (set for
// the dynamic extent of any judgment/tracer.With/Observe call). When the
// gate is set, Start routes the call through judgment.ActiveTracer().Span
// and wraps the result as an oteltrace.Span, so the bridged span runs the
// same lifecycle chain and batch-export wiring as any other judgeval span;
// otherwise it delegates unchanged to the previously registered provider.
package otelbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JudgmentLabs/judgeval-go/internal/jctx"
	"github.com/JudgmentLabs/judgeval-go/judgment"
)

// Install builds an OTEL tracer provider that bridges through to judgeval
// spans for calls made inside a gated context and falls back to fallback
// (or a no-op provider if fallback is nil) for everything else. It does not
// register the provider itself: callers pass the result to
// otel.SetTracerProvider.
func Install(fallback oteltrace.TracerProvider) oteltrace.TracerProvider {
	if fallback == nil {
		fallback = noop.NewTracerProvider()
	}
	return &bridgeProvider{fallback: fallback}
}

type bridgeProvider struct {
	fallback oteltrace.TracerProvider
}

func (p *bridgeProvider) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	return &bridgeTracer{fallback: p.fallback.Tracer(name, opts...)}
}

type bridgeTracer struct {
	fallback oteltrace.Tracer
}

func (t *bridgeTracer) Start(ctx context.Context, spanName string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	if !jctx.Gated(ctx) {
		return t.fallback.Start(ctx, spanName, opts...)
	}
	// Route through the active judgment.Tracer rather than constructing the
	// span directly: that's what runs the lifecycle OnStart chain and wires
	// SetEndHook so the span reaches the batch processor on End, exactly as
	// if judgment/tracer.With had started it.
	span, newCtx := judgment.ActiveTracer().Span(ctx, spanName)
	return newCtx, &bridgeSpan{span: span}
}

// bridgeSpan adapts *judgment.Span to oteltrace.Span. Embedding noop.Span
// satisfies the trace.embedded.Span marker and supplies AddLink/
// TracerProvider; every method that matters for a judgeval-joined span is
// overridden below.
type bridgeSpan struct {
	noop.Span
	span *judgment.Span
}

func (s *bridgeSpan) End(...oteltrace.SpanEndOption) {
	s.span.End()
}

func (s *bridgeSpan) AddEvent(name string, opts ...oteltrace.EventOption) {
	cfg := oteltrace.NewEventConfig(opts...)
	attrs := make(map[string]any, len(cfg.Attributes()))
	for _, kv := range cfg.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	s.span.AddEvent(name, attrs)
}

func (s *bridgeSpan) IsRecording() bool {
	return !s.span.IsEnded()
}

func (s *bridgeSpan) RecordError(err error, _ ...oteltrace.EventOption) {
	s.span.RecordError(err)
}

func (s *bridgeSpan) SpanContext() oteltrace.SpanContext {
	return oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    s.span.TraceID(),
		SpanID:     s.span.SpanID(),
		TraceFlags: oteltrace.FlagsSampled,
	})
}

func (s *bridgeSpan) SetStatus(code codes.Code, description string) {
	if code == codes.Error {
		s.span.SetStatus(judgment.StatusError, description)
		return
	}
	s.span.SetStatus(judgment.StatusOK, "")
}

func (s *bridgeSpan) SetName(name string) {
	// judgment.Span names are immutable once created; the bridge silently
	// ignores renames rather than faking support for them.
}

func (s *bridgeSpan) SetAttributes(kvs ...attribute.KeyValue) {
	for _, kv := range kvs {
		s.span.SetAttribute(string(kv.Key), kv.Value.AsInterface())
	}
}
