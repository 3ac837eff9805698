// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package judgeval is a client-side telemetry and online-evaluation SDK. It
// instruments application code, captures a causal tree of timed, attributed
// spans across concurrent Go code, and ships batches of finished spans to a
// remote evaluation backend. Spans may additionally request scoring by
// remote scorers, either against a single example or against the trace
// subtree rooted at the span.
//
// Call Start once, at process startup, to resolve a project and register a
// platform tracer:
//
//	tr, err := judgeval.Start(judgeval.WithProjectName("my-service"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer tr.Shutdown(context.Background())
//
// From then on, instrument code with With or Observe:
//
//	err := tr.With(ctx, "handle-request", func(ctx context.Context, span *judgment.Span) error {
//		tr.SetInput(ctx, req)
//		return nil
//	})
package judgeval
