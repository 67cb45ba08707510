// Package services defines shared utilities consumed across the file
// registry, the dispatch controller, and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, file IDs, module names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (structural caller errors vs per-target tool failures)
//     uniform across components.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays consistent end to end.
package services
