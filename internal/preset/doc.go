// Package preset manages the named parameter sets for the vinyl effect
// module.
//
// Presets live in a JSON file under the state directory. The file is seeded
// with the builtin catalog on first open, is human-readable, and can be
// edited by hand. Saves replace the whole file atomically via a temp file
// rename. Order in the file is preserved so listings stay stable across
// runs.
package preset
