// Package process supervises a single external OS process.
//
// A Handle owns one spawned process for its whole life: it starts it with
// both output streams attached to Drain tasks, reports liveness without
// blocking, stops it with SIGTERM followed by SIGKILL once a grace period or
// the caller's context runs out, and lets any number of goroutines wait for
// its exit. Service and foreground processes share the same Handle; they
// differ only by the Role recorded in their Spec.
package process
