package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/desertthunder/plsort/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of the CLI sign-in callback: a token or the reason there is none.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler serves the single authorization code callback of "plsort auth login".
//
// The first request to its path consumes the handler; later requests get 400 and the
// result channel is never written twice.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	path   string
	used   atomic.Bool
	result chan OAuthResult
}

// NewOAuthHandler returns a handler expecting state on its callback. The callback path comes from
// the config's redirect URL and defaults to /callback.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	path := "/callback"
	if u, err := url.Parse(config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return &OAuthHandler{config: config, state: state, path: path, result: make(chan OAuthResult, 1)}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"GET " + h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.used.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	switch {
	case query.Get("state") != h.state:
		h.fail(w, http.StatusBadRequest, "Invalid state parameter", fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed))
		return
	case query.Get("code") == "":
		h.fail(w, http.StatusBadRequest, "Authorization failed",
			fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed", fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err))
		return
	}

	h.result <- OAuthResult{Token: token}
	close(h.result)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, signedInPage)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, msg string, err error) {
	h.result <- OAuthResult{Err: err}
	close(h.result)
	http.Error(w, msg, status)
}

// Result receives exactly one OAuthResult, then is closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.result
}

const signedInPage = `<!DOCTYPE html>
<html>
<head><title>plsort</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1 style="color: #1DB954">Signed in to Spotify</h1>
<p>Return to your terminal; this window can be closed.</p>
</body>
</html>
`
