// Package auth implements the session gate that guards every call to Spotify.
//
// # Credential Store
//
// [Store] persists [models.Session] records, each binding one Spotify user to an OAuth2 credential.
// [MemoryStore] keeps sessions in process; repositories.SessionRepository persists them in SQLite.
//
// # Gate
//
// [Gate.RequireSession] is the first step of every operation. It returns a [Session] only when the stored
// credential is present and not expired, and fails with [shared.ErrUnauthorized] otherwise, without any
// network I/O. An expired credential with a refresh token is handed to the gate's [Refresher]
// ([OAuthRefresher] wraps golang.org/x/oauth2) and the refreshed credential is written back to the store.
//
// A [Session] never caches its credential: [Session.Credential] re-reads the store on every call, so a
// refresh that happens mid-operation is observed by the next request.
package auth
