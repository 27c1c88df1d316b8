// Package server provides HTTP routing, middleware, the playlist API and OAuth handling for the CLI and web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /playlists").
//
// # API
//
// [APIHandler] serves GET /playlists, POST /playlists/reorder and GET /healthz.
// [AuthHandler] serves the browser sign-in flow under /auth.
//
// Requests are bound to a session through a signed cookie ([Cookies], backed by gorilla/sessions) that holds
// only the session ID. Error bodies tell the client whether it is signed in or the operation failed;
// everything finer is logged.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the one-shot authorization code callback used by "plsort auth login".
// A temporary HTTP server handles the callback and shuts down after receiving the token.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
