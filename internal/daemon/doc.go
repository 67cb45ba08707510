// Package daemon runs the long-lived mixdown process: it enforces
// single-instance execution with a lock file, serves the HTTP API, sweeps
// idle sessions, and supervises the optional watch-folder ingest.
package daemon
