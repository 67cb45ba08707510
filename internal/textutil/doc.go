// Package textutil provides filename and display-text helpers shared by the
// upload, watch, and module layers.
//
// The helpers cover three concerns: scrubbing user-supplied names before
// they touch the filesystem, deriving output filenames for processed audio
// (prefix plus source stem plus target extension), and turning machine
// filenames into human-readable titles for auto-ingested files.
package textutil
