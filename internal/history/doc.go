// Package history keeps a small SQLite log of launcher sessions: when each
// session ran, how it ended, and whether shutdown had to kill anything.
// It uses the pure-Go modernc.org/sqlite driver, so no CGO is needed.
package history
