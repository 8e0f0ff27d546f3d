// Package netutil holds the TCP helpers shared by the readiness prober and
// the environment validator. PortOpen performs a single bounded connect
// attempt; PortRegistry hands out free loopback ports without giving the
// same port to two concurrent callers.
package netutil
