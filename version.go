// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package judgeval

// Version is the SDK version reported as the telemetry.sdk.version resource
// attribute on every exported batch.
const Version = "0.1.0"
