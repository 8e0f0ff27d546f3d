// Package lock provides the session lock: an exclusive advisory file lock
// that keeps two launchers in the same directory from starting the same
// service on the same port.
package lock
