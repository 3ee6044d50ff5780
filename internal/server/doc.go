// Package server runs the short-lived local HTTP server that completes OAuth2 authorization-code flows.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are provided.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Callback Server
//
// [StartCallbackServer] binds the redirect address before the browser is opened, so the callback can never
// arrive ahead of the listener. [CallbackServer.Wait] blocks until the callback, a server error, the timeout,
// or cancellation of the context, whichever comes first.
//
// Both `stx strava auth` and `stx spotify auth` use this flow; the redirect URI registered with each
// provider must point at the configured host and port.
package server
