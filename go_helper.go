// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package judgeval

import "context"

// Go spawns fn in a new goroutine with ctx passed explicitly. Go's
// goroutines do not automatically inherit the spawning goroutine's
// context.Context the way an async-local-storage runtime would, so this is
// the explicit plumbing the spec's "asynchronous" Observe shape relies on:
// an Observe-wrapped function called via judgeval.Go(ctx, fn) keeps its span
// open for the goroutine's lifetime and ends it when fn returns.
func Go(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}
