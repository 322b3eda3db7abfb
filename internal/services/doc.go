// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, devices, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper. Kind translates a
//     wrapped failure into the short classification sent to clients in
//     error events and stored in the job history.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
