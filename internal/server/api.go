package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/tasks"
)

// Gate is the session gate used by the HTTP handlers.
type Gate interface {
	RequireSession(ctx context.Context, sessionID string) (*auth.Session, error)
	StartSession(ctx context.Context, userID, displayName string, cred models.Credential) (*models.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// ReorderRequest is the body of POST /playlists/reorder.
//
// Tracks is accepted from older clients and ignored; the server always re-fetches the playlist.
type ReorderRequest struct {
	PlaylistID string            `json:"playlistId"`
	Tracks     []models.TrackRef `json:"tracks,omitempty"`
}

// ReorderResponse is the success body of POST /playlists/reorder.
type ReorderResponse struct {
	Success bool `json:"success"`
	*tasks.ReorderResult
}

// APIHandler serves the playlist endpoints.
type APIHandler struct {
	gate      Gate
	catalog   services.Catalog
	reorderer tasks.Reorderer
	cookies   *Cookies
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewAPIHandler creates an [APIHandler].
func NewAPIHandler(gate Gate, catalog services.Catalog, reorderer tasks.Reorderer, cookies *Cookies, logger *log.Logger) *APIHandler {
	h := &APIHandler{
		gate:      gate,
		catalog:   catalog,
		reorderer: reorderer,
		cookies:   cookies,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /playlists", h.listPlaylists)
	h.mux.HandleFunc("POST /playlists/reorder", h.reorder)
	h.mux.HandleFunc("GET /healthz", h.health)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"GET /playlists", "POST /playlists/reorder", "GET /healthz"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *APIHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	session, err := h.gate.RequireSession(r.Context(), h.cookies.SessionID(r))
	if err != nil {
		h.logger.Debug("session rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items := []models.Playlist{}
	for p, err := range h.catalog.ListPlaylists(r.Context(), session) {
		if err != nil {
			h.logger.Error("failed to fetch playlists", "user", session.UserID(), "error", err)
			if errors.Is(err, shared.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to fetch playlists")
			return
		}
		items = append(items, p)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *APIHandler) reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if req.PlaylistID == "" {
		writeError(w, http.StatusBadRequest, "playlistId is required")
		return
	}

	result, err := h.reorderer.Reorder(r.Context(), h.cookies.SessionID(r), req.PlaylistID, nil)
	if err != nil {
		h.logger.Error("reorder failed", "playlist", req.PlaylistID, "error", err)
		switch {
		case errors.Is(err, shared.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, shared.ErrReorderInProgress):
			writeError(w, http.StatusConflict, "Reorder already in progress")
		default:
			body := map[string]any{"error": "Failed to reorder playlist"}
			if result != nil {
				body["appliedBatches"] = result.AppliedBatches
			}
			writeJSON(w, http.StatusInternalServerError, body)
		}
		return
	}

	writeJSON(w, http.StatusOK, ReorderResponse{Success: true, ReorderResult: result})
}
