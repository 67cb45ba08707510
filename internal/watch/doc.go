// Package watch ingests audio files dropped into the configured watch
// folder. New files settle (their size must stop changing) before being
// imported into the shared inbox session through the same registration path
// API uploads use.
package watch
