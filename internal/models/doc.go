// Package models defines domain entities and persistence interfaces for stx.
//
// The package contains two categories of types:
//
// 1. Values: immutable data passed between components
//   - [CredentialSet] : an OAuth access/refresh token pair with its expiry, replaced wholesale on refresh
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [ExportRun] : a completed activity export with its totals and output files
//   - [StoredCredential] : the credential set last persisted for a provider
//
// [ExportRun] implements the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
