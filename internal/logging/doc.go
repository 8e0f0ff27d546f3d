// Package logging builds the launcher's slog logger from configuration.
// Records go to the given console writer and, optionally, to a log file
// that is rotated by size.
package logging
