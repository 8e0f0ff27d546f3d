// Package sentinel defines Error, a string error type that can be declared
// as a const. Every sentinel in duolaunch (spawn failures, readiness
// timeouts, startup failures, config and environment problems) uses it so
// that callers can match categories with errors.Is without any risk of the
// value being reassigned.
package sentinel
