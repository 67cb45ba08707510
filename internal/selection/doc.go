// Package selection tracks which file entries are active per UI panel.
//
// A tracker is scoped to one session. Each panel owns an independent ordered
// selection, replaced wholesale on every select call. The session context
// purges ids from every panel when entries are removed from the catalog, so
// a selection never references a file that no longer exists.
package selection
