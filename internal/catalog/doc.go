// Package catalog persists sessions and their file entries in SQLite.
//
// The Store manages database connections, schema migrations, and the ordering
// invariants that keep each session's entries contiguous: order indexes run
// 0..N-1 with no gaps, every storage path is registered at most once, and
// removal renormalizes the survivors in the same transaction. File entries
// capture origin (uploaded vs derived), the source entry and module that
// produced derived outputs, and creation timestamps.
//
// Treat this package as the single source of truth for registry semantics;
// when you add new entry fields, add a migration under migrations/ and extend
// entryColumns plus scanEntry together.
package catalog
