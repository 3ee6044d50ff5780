// Package tasks orchestrates the long-running stx operations with real-time progress reporting.
//
// # Core Operations
//
//  1. [ExportEngine.Run] : Strava activity export
//     - Walks the paginated activity listing through the resilient executor
//     - Normalizes every record; a malformed record aborts the run
//     - Summarizes by sport type and writes both tables, or nothing at all on failure
//     - Records the completed run in the export history when a [RunRecorder] is configured
//
//  2. [PlaylistBuilder.Run] : Spotify playlist creation
//     - Resolves each "Song - Artist" query with a single-result search
//     - Creates the playlist for the current user
//     - Adds the found tracks in batches of 100
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
