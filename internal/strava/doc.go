// Package strava implements the resilient paginated fetch client for the Strava activity API.
//
// The pipeline is built from five parts:
//
//   - [TokenRefresher] : exchanges a refresh token for a new [models.CredentialSet] and persists it
//   - [Executor] : issues one authenticated GET, absorbing rate limits, token expiry and transient failures
//   - [Pager] : walks the activity listing page by page as a lazy, single-use sequence of [RawRecord]
//   - [Normalize] : flattens a [RawRecord] into an [ActivityRow] with a fixed field set
//   - [Summarize] : groups normalized rows by sport type into [SummaryRow]s
//
// Everything runs sequentially on the caller's goroutine. The [Executor] exclusively owns the current
// credential set and only replaces it with the value returned by its [Refresher].
package strava
