package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	cookieName    = "plsort_session"
	keySessionID  = "sid"
	keyOAuthState = "state"
	cookieMaxAge  = 30 * 24 * 60 * 60
)

// Cookies stores the session ID and OAuth state in a signed (and optionally encrypted) cookie.
// The credential itself never leaves the server.
type Cookies struct {
	store  *sessions.CookieStore
	logger *log.Logger
}

// NewCookies creates a [Cookies] store. A missing authKey is replaced with a random one, which invalidates
// cookies on restart. encKey may be nil to sign without encrypting.
func NewCookies(authKey, encKey []byte, secure bool, logger *log.Logger) *Cookies {
	if len(authKey) == 0 {
		logger.Warn("no cookie_auth_key configured, using a random key")
		authKey = securecookie.GenerateRandomKey(32)
	}

	keys := [][]byte{authKey}
	if len(encKey) > 0 {
		keys = append(keys, encKey)
	}

	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Cookies{store: store, logger: logger}
}

// get returns the cookie session. A cookie that fails to decode is treated as empty.
func (c *Cookies) get(r *http.Request) *sessions.Session {
	s, err := c.store.Get(r, cookieName)
	if err != nil {
		c.logger.Debug("could not decode session cookie", "error", err)
	}
	return s
}

func (c *Cookies) value(r *http.Request, key string) string {
	v, _ := c.get(r).Values[key].(string)
	return v
}

func (c *Cookies) set(w http.ResponseWriter, r *http.Request, key, value string) error {
	s := c.get(r)
	if value == "" {
		delete(s.Values, key)
	} else {
		s.Values[key] = value
	}
	return s.Save(r, w)
}

// SessionID returns the session ID carried by the request, or "".
func (c *Cookies) SessionID(r *http.Request) string {
	return c.value(r, keySessionID)
}

// SetSessionID binds the cookie to a session and clears any pending OAuth state.
func (c *Cookies) SetSessionID(w http.ResponseWriter, r *http.Request, id string) error {
	s := c.get(r)
	s.Values[keySessionID] = id
	delete(s.Values, keyOAuthState)
	return s.Save(r, w)
}

// State returns the pending OAuth state, or "".
func (c *Cookies) State(r *http.Request) string {
	return c.value(r, keyOAuthState)
}

// SetState stores the OAuth state for the callback to verify.
func (c *Cookies) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	return c.set(w, r, keyOAuthState, state)
}

// Clear expires the cookie.
func (c *Cookies) Clear(w http.ResponseWriter, r *http.Request) error {
	s := c.get(r)
	s.Values = map[any]any{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}
