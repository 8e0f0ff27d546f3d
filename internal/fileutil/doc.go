// Package fileutil provides the small set of filesystem helpers duolaunch
// needs before a session starts: creating the parent directories of the log
// file, lock file and history database, and probing whether the working
// directory is writable.
package fileutil
