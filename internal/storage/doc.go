// Package storage lays out per-session workspaces on disk and owns the
// file lifecycle inside them. Each session gets a directory under the
// library root containing uploads/ for ingested files and outputs/ for
// processed results. The catalog stores absolute paths into these
// workspaces; storage never consults the catalog.
package storage
