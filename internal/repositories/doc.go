// Package repositories implements persistence for stx.
//
// Key Implementations:
//   - [ExportRunRepository] : history of completed activity exports, soft deleted via deleted_at
//   - [CredentialRepository] : the current [models.CredentialSet] of a provider in the credentials table
//   - [TokenFile] : the same contract backed by a TOML file, for runs without a database
//
// Credential stores replace the stored set wholesale on every Save; there is no partial update.
//
// Sequence numbers provide stable, human-readable ordering (e.g., export #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
