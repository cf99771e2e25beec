// Package services defines shared utilities consumed by the pipeline steps and
// the external collaborator adapters.
//
// Key responsibilities:
//   - Context helpers that stamp production IDs, step names, segment indexes,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (generation, render timeout vs render failure, persistence, invalid
//     timeline) so callers can decide between retrying and surfacing.
//
// Use these helpers when wiring new step logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
