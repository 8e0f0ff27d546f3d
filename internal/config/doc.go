// Package config loads the launcher configuration.
//
// The configuration is a YAML file (launcher.yaml by default). Defaults
// cover every key, the file overrides them, and a few DUOLAUNCH_*
// environment variables override the file. Relative paths are resolved
// against the directory that holds the file.
//
// Resolve turns a validated Config into immutable process specs and
// timings for the session.
package config
