// Package probe decides when a freshly spawned service is usable.
//
// Poll is a bounded polling loop over an arbitrary check with a fixed
// interval between attempts and an overall deadline. WaitUntilReady builds
// on it with a TCP connect check, which is the readiness signal for
// services that only promise to listen on a port. Both abort early when
// the probed process exits, so a service that crashes on startup does not
// burn the whole timeout.
//
// Probes hold no state between calls; every invocation is independent and
// safe to repeat.
package probe
