package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrAuthFailed      = fmt.Errorf("authentication failed")
	ErrTokenExpired    = fmt.Errorf("access token expired")
	ErrMissingScope    = fmt.Errorf("insufficient scope")
	ErrRefreshFailed   = fmt.Errorf("token refresh failed")
	ErrSessionNotFound = fmt.Errorf("session not found")

	// Remote catalog errors
	ErrUpstream           = fmt.Errorf("upstream request failed")
	ErrTransient          = fmt.Errorf("transient network failure")
	ErrPartialApply       = fmt.Errorf("playlist partially reordered")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Reorder errors
	ErrReorderInProgress = fmt.Errorf("reorder already in progress")
	ErrUnsupportedTrack  = fmt.Errorf("playlist contains tracks that cannot be re-added")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
