// Package services implements the Spotify Web API client used by `stx spotify`.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The [oauth2.Client] refreshes expired tokens using the refresh token; [SpotifyService.SetTokenRefreshCallback]
// lets the caller persist each refreshed token.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrTrackNotFound] : a search returned no tracks
//
// Non-2xx responses are returned as *[APIError] carrying the status and Spotify's error message.
package services
