// Package session binds the catalog, selection tracker, module registry,
// and dispatch controller into one handle per user session.
//
// The Context is where cross-component consistency lives: removing a file
// releases its bytes and drops it from every selection panel in the same
// operation, and teardown releases everything the session owns. It also
// owns the dispatch guard: one module run per session at a time, a second
// concurrent run fails fast with ErrDispatchBusy.
//
// The Manager hands out Contexts, keeps them stable across requests so
// selection state survives, and sweeps idle sessions on a timer.
package session
