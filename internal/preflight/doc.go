// Package preflight verifies that the environment can support daemon
// operation before any session work starts: required directories must be
// accessible and the external media binaries must resolve on PATH.
package preflight
