// Package repositories implements SQLite persistence for sessions.
//
// [SessionRepository] implements [models.Repository] for [models.Session] and is the durable credential
// store behind the auth gate. Tokens are stored as issued; scopes are stored space separated, the same way
// the token endpoint returns them.
//
// Unlike soft-deleting stores, sign-out removes the row: a revoked session must not be recoverable.
package repositories
