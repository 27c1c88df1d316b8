package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/plsort/internal/models"
)

// RecordedRequest is one call received by [FakeSpotify].
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	URIs   []string
}

// FakeSpotify is an httptest server implementing the Web API endpoints used by the catalog client.
//
// Paging honours the client's limit, capped by the page size when set. Track page reads and writes
// are counted from 1.
type FakeSpotify struct {
	Server *httptest.Server

	mu         sync.Mutex
	userID     string
	userName   string
	token      string
	playlists  []models.Playlist
	tracks     map[string][]models.TrackRef
	known      map[string]models.TrackRef
	requests   []RecordedRequest
	writes     int
	pageSize   int
	failWrite  int
	failStatus int
	reads      int
	failRead   int
	readStatus int
}

// NewFakeSpotify starts a [FakeSpotify] that is closed when the test ends.
// Requests must carry "Bearer token" unless token is empty.
func NewFakeSpotify(t *testing.T, token string) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		userID:   "user-1",
		userName: "Test User",
		token:    token,
		tracks:   map[string][]models.TrackRef{},
		known:    map[string]models.TrackRef{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", f.handleMe)
	mux.HandleFunc("GET /me/playlists", f.handlePlaylists)
	mux.HandleFunc("GET /playlists/{id}/tracks", f.handleTracks)
	mux.HandleFunc("PUT /playlists/{id}/tracks", f.handleWrite)
	mux.HandleFunc("POST /playlists/{id}/tracks", f.handleWrite)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeSpotify) URL() string {
	return f.Server.URL
}

// SetUser sets the profile returned by GET /me.
func (f *FakeSpotify) SetUser(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID, f.userName = id, name
}

// SetPageSize caps the number of items per page.
func (f *FakeSpotify) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// FailWriteAt makes the nth write (counted from 1) fail with status. n = 0 disables the failure.
func (f *FakeSpotify) FailWriteAt(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite, f.failStatus = n, status
}

// FailReadAt makes the nth track page read (counted from 1) fail with status. n = 0 disables the failure.
func (f *FakeSpotify) FailReadAt(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead, f.readStatus = n, status
}

// AddPlaylist registers a playlist with its tracks.
func (f *FakeSpotify) AddPlaylist(p models.Playlist, tracks []models.TrackRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists = append(f.playlists, p)
	f.tracks[p.ID] = slices.Clone(tracks)
	for _, tr := range tracks {
		if tr.URI != "" {
			f.known[tr.URI] = tr
		}
	}
}

// Tracks returns the current contents of a playlist.
func (f *FakeSpotify) Tracks(playlistID string) []models.TrackRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tracks[playlistID])
}

// Requests returns every request received so far.
func (f *FakeSpotify) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// Writes returns the PUT and POST requests received so far.
func (f *FakeSpotify) Writes() []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeSpotify) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			uris, err := decodeURIs(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "malformed body")
				return
			}
			rec.URIs = uris
		}

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()

		if f.token != "" && rec.Auth != "Bearer "+f.token {
			writeError(w, http.StatusUnauthorized, "The access token expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeSpotify) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": f.userID, "display_name": f.userName})
}

func (f *FakeSpotify) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	offset, limit := f.window(r, 50)
	end := min(offset+limit, len(f.playlists))
	items := []map[string]any{}
	for _, p := range f.playlists[min(offset, end):end] {
		items = append(items, map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"public":      p.Public,
			"owner":       map[string]any{"id": p.OwnerID},
			"tracks":      map[string]any{"total": len(f.tracks[p.ID])},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(f.playlists),
		"next":  f.next(r, end, limit, len(f.playlists)),
	})
}

func (f *FakeSpotify) handleTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks, ok := f.tracks[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	f.reads++
	if f.failRead == f.reads {
		writeError(w, f.readStatus, "Service unavailable")
		return
	}

	offset, limit := f.window(r, 100)
	end := min(offset+limit, len(tracks))
	items := []map[string]any{}
	for _, tr := range tracks[min(offset, end):end] {
		var track any
		if tr.URI != "" {
			track = map[string]any{"name": tr.Name, "uri": tr.URI}
		}
		items = append(items, map[string]any{"is_local": tr.Local, "track": track})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(tracks),
		"next":  f.next(r, end, limit, len(tracks)),
	})
}

func (f *FakeSpotify) handleWrite(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := f.tracks[id]; !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	f.writes++
	if f.failWrite == f.writes {
		writeError(w, f.failStatus, "Service unavailable")
		return
	}

	uris, _ := decodeURIs(r)
	if len(uris) > 100 {
		writeError(w, http.StatusBadRequest, "Too many tracks")
		return
	}

	added := make([]models.TrackRef, len(uris))
	for i, uri := range uris {
		tr, ok := f.known[uri]
		if !ok {
			tr = models.TrackRef{URI: uri}
		}
		added[i] = tr
	}

	status := http.StatusCreated
	if r.Method == http.MethodPut {
		f.tracks[id] = added
		status = http.StatusOK
	} else {
		f.tracks[id] = append(f.tracks[id], added...)
	}
	writeJSON(w, status, map[string]any{"snapshot_id": fmt.Sprintf("snap-%d", f.writes)})
}

// window reads offset and limit, capping limit at the page size when set.
func (f *FakeSpotify) window(r *http.Request, def int) (offset, limit int) {
	q := r.URL.Query()
	offset, _ = strconv.Atoi(q.Get("offset"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = def
	}
	if f.pageSize > 0 && limit > f.pageSize {
		limit = f.pageSize
	}
	return offset, limit
}

func (f *FakeSpotify) next(r *http.Request, end, limit, total int) any {
	if end >= total {
		return nil
	}
	q := r.URL.Query()
	q.Set("offset", strconv.Itoa(end))
	q.Set("limit", strconv.Itoa(limit))
	return f.Server.URL + r.URL.Path + "?" + q.Encode()
}

// decodeURIs reads the {"uris": [...]} body and restores it for later readers.
func decodeURIs(r *http.Request) ([]string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body.URIs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}
