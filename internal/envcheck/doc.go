// Package envcheck verifies the environment before a session starts: both
// executables exist and are runnable, nothing already listens on the
// service port, and the working directory is writable for logs and the
// session lock. All checks run concurrently and every failure is reported.
package envcheck
