// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package jctx provides the task-local carrier judgeval installs the active
// span (and the OTEL-bridge gate) into. It deliberately knows nothing about
// *judgment.Span — it carries an opaque `any` so that judgment (which owns
// the span type) can depend on jctx without creating an import cycle.
//
// Go has no implicit async-local-storage: context.Context is itself the
// "platform's task-local storage primitive" the design calls for. A
// context.Context is immutable and derivation-only exactly like the spec's
// Context, and it already flows correctly through goroutine boundaries —
// the one thing it does not do automatically is follow a spawned goroutine
// without the caller passing it along, which is why judgeval.Go exists.
package jctx

import "context"

type activeKey struct{}
type gateKey struct{}

// WithValue returns a derived Context with v installed as the active value
// (normally a *judgment.Span). Passing nil clears the active value.
func WithValue(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, activeKey{}, v)
}

// Value returns the active value installed by the nearest enclosing
// WithValue, or nil if none is active.
func Value(ctx context.Context) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(activeKey{})
}

// With installs v as the active value for the dynamic extent of fn and
// returns fn's result. The Context observed by code running after With
// returns is unchanged, matching the "no leakage" invariant: With never
// mutates the caller's ctx, it only ever passes a derived copy to fn.
func With[R any](ctx context.Context, v any, fn func(context.Context) R) R {
	return fn(WithValue(ctx, v))
}

// Bind returns a closure that installs v as the active value around each
// invocation of fn, for handing off to code that will call it later
// (possibly from a different goroutine) without threading ctx through by
// hand.
func Bind[R any](ctx context.Context, v any, fn func(context.Context) R) func() R {
	bound := WithValue(ctx, v)
	return func() R { return fn(bound) }
}

// WithGate returns a derived Context with the OTEL-bridge gate set. The
// gate is installed only inside judgment/tracer's With/Observe scopes; the
// bridge in internal/otelbridge consults it to decide whether a call
// through the OTEL API should be routed into judgeval or left untouched.
func WithGate(ctx context.Context) context.Context {
	return context.WithValue(ctx, gateKey{}, true)
}

// Gated reports whether ctx carries the OTEL-bridge gate.
func Gated(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(gateKey{}).(bool)
	return v
}
