// Package server exposes the session, file, selection, module, and dispatch
// surfaces over a JSON HTTP API. It is the boundary the UI layer and the CLI
// talk to; all state changes go through the session manager so the store and
// the selection trackers stay consistent.
package server
