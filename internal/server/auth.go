package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"golang.org/x/oauth2"
)

// AuthHandler serves the browser sign-in flow. The authorization code is exchanged server-side and the
// credential is stored in a session record; the browser only ever holds the signed session cookie.
type AuthHandler struct {
	config  *oauth2.Config
	gate    Gate
	catalog services.Catalog
	cookies *Cookies
	logger  *log.Logger
	mux     *http.ServeMux
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(config *oauth2.Config, gate Gate, catalog services.Catalog, cookies *Cookies, logger *log.Logger) *AuthHandler {
	h := &AuthHandler{
		config:  config,
		gate:    gate,
		catalog: catalog,
		cookies: cookies,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /auth/login", h.login)
	h.mux.HandleFunc("GET /auth/callback", h.callback)
	h.mux.HandleFunc("POST /auth/logout", h.logout)
	h.mux.HandleFunc("GET /auth/session", h.session)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"GET /auth/login", "GET /auth/callback", "POST /auth/logout", "GET /auth/session"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	if err := h.cookies.SetState(w, r, state); err != nil {
		h.logger.Error("failed to store oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start sign-in")
		return
	}
	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	expected := h.cookies.State(r)
	if expected == "" || query.Get("state") != expected {
		writeError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("authorization denied", "error", query.Get("error"))
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cred := auth.CredentialFromToken(token, h.config.Scopes)
	user, err := h.catalog.CurrentUser(r.Context(), services.StaticCredential(cred))
	if err != nil {
		h.logger.Error("failed to resolve user", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	session, err := h.gate.StartSession(r.Context(), user.ID, user.DisplayName, cred)
	if err != nil {
		h.logger.Error("failed to create session", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	if err := h.cookies.SetSessionID(w, r, session.ID()); err != nil {
		h.logger.Error("failed to set session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	h.logger.Info("signed in", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"userId": user.ID, "displayName": user.DisplayName})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.EndSession(r.Context(), h.cookies.SessionID(r)); err != nil {
		h.logger.Error("failed to end session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	if err := h.cookies.Clear(w, r); err != nil {
		h.logger.Warn("failed to clear session cookie", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.gate.RequireSession(r.Context(), h.cookies.SessionID(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": session.UserID(), "displayName": session.DisplayName()})
}
