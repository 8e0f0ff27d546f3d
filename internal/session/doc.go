// Package session orchestrates one launcher session: a service process that
// must accept TCP connections before a foreground process is started, then a
// wait on the foreground, then a bounded concurrent shutdown of both.
//
// Startup is strictly sequential and stops at the first failure:
//
//  1. Start the service process.
//  2. Probe its port until it accepts connections or the startup timeout
//     elapses. A service that exits while being probed fails immediately.
//  3. Start the foreground process.
//
// Every failure leaves already started processes running; callers always
// call Shutdown, which stops whatever is alive and releases all handles.
//
// Shutdown stops all handles concurrently. Each handle gets its own grace
// period, and a session-wide budget caps the total: when the budget runs
// out, any handle still inside its grace period is killed immediately.
package session
