// Spotify Web API implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL        = "https://api.spotify.com/v1"
	DefaultBatchLimit     = 100
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 250 * time.Millisecond

	playlistPageSize = 50
	trackPageSize    = 100
	trackFields      = "items(is_local,track(name,uri)),next"
)

type owner struct {
	ID string `json:"id"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       owner      `json:"owner"`
	Public      *bool      `json:"public"`
	Tracks      trackTotal `json:"tracks"`
}

func (p SpotifySimplePlaylist) toModel() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public != nil && *p.Public,
	}
}

type playlistPage struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Next  string                  `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for entries
// Spotify can no longer resolve.
type SpotifyPlaylistTrack struct {
	IsLocal bool `json:"is_local"`
	Track   *struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	} `json:"track"`
}

func (t SpotifyPlaylistTrack) toModel() models.TrackRef {
	ref := models.TrackRef{Local: t.IsLocal}
	if t.Track != nil {
		ref.Name = t.Track.Name
		ref.URI = t.Track.URI
	}
	return ref
}

type trackPage struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  string                 `json:"next"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Options configures a [SpotifyService]. Zero values fall back to the package defaults.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	BatchLimit     int
	RateLimit      float64 // requests per second, 0 disables throttling
	RateBurst      int
	RetryAttempts  int // total attempts for idempotent requests
	RetryBaseDelay time.Duration
	Logger         *log.Logger
}

// OptionsFromConfig maps the [shared.SpotifyAPIConfig] section onto [Options].
func OptionsFromConfig(c shared.SpotifyAPIConfig, logger *log.Logger) Options {
	opts := Options{
		BaseURL:        c.APIURL,
		BatchLimit:     c.BatchLimit,
		RateLimit:      c.RateLimit,
		RateBurst:      c.RateBurst,
		RetryAttempts:  c.RetryAttempts,
		RetryBaseDelay: c.RetryBaseDelay.Duration,
		Logger:         logger,
	}
	if c.Timeout.Duration > 0 {
		opts.HTTPClient = &http.Client{Timeout: c.Timeout.Duration}
	}
	return opts
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// Every request resolves its credential from the caller's [CredentialSource], checks it is usable and carries
// the required scopes before any I/O, waits on a client-side rate limiter and maps failures to
// [UpstreamError] or [TransientError]. Idempotent requests (GET, PUT) are retried on transient failures.
type SpotifyService struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	batchLimit     int
	retryAttempts  int
	retryBaseDelay time.Duration
	logger         *log.Logger
	now            func() time.Time
}

var _ Catalog = (*SpotifyService)(nil)

// NewSpotifyService creates a [SpotifyService].
func NewSpotifyService(opts Options) *SpotifyService {
	s := &SpotifyService{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		batchLimit:     opts.BatchLimit,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		logger:         opts.Logger,
		now:            time.Now,
	}

	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.batchLimit <= 0 || s.batchLimit > DefaultBatchLimit {
		s.batchLimit = DefaultBatchLimit
	}
	if s.retryAttempts <= 0 {
		s.retryAttempts = DefaultRetryAttempts
	}
	if s.retryBaseDelay <= 0 {
		s.retryBaseDelay = DefaultRetryBaseDelay
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(io.Discard)
	}

	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return s
}

// BatchLimit returns the maximum number of URIs sent per write.
func (s *SpotifyService) BatchLimit() int {
	return s.batchLimit
}

// call describes one API request.
type call struct {
	method string
	url    string
	body   any
	scopes []string
}

// idempotent reports whether repeating the request cannot change the outcome. Appends are not.
func (c call) idempotent() bool {
	return c.method == http.MethodGet || c.method == http.MethodPut
}

func (s *SpotifyService) endpoint(path string, query url.Values) string {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// authorize rejects credentials that cannot succeed so no request is sent with them.
func authorize(cred models.Credential, scopes []string, now time.Time) error {
	switch {
	case cred.IsZero():
		return fmt.Errorf("%w: no credential", shared.ErrUnauthorized)
	case cred.Expired(now):
		return fmt.Errorf("%w: %w", shared.ErrUnauthorized, shared.ErrTokenExpired)
	case !cred.HasScopes(scopes...):
		return fmt.Errorf("%w: %w: requires %s", shared.ErrUnauthorized, shared.ErrMissingScope, strings.Join(scopes, " "))
	}
	return nil
}

// do runs c, retrying transient failures of idempotent requests with exponential backoff.
func (s *SpotifyService) do(ctx context.Context, creds CredentialSource, c call, result any) error {
	attempts := 1
	if c.idempotent() {
		attempts = s.retryAttempts
	}

	var payload []byte
	if c.body != nil {
		var err error
		if payload, err = json.Marshal(c.body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			wait := s.retryBaseDelay * time.Duration(1<<(attempt-1))
			s.logger.Warn("retrying request", "method", c.method, "url", c.url, "attempt", attempt+1, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := s.once(ctx, creds, c, payload, result)
		if err == nil {
			return nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			return err
		}
		lastErr = err
	}

	if attempts > 1 {
		return fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
	}
	return lastErr
}

func (s *SpotifyService) once(ctx context.Context, creds CredentialSource, c call, payload []byte, result any) error {
	cred, err := creds.Credential(ctx)
	if err != nil {
		return err
	}
	if err := authorize(cred, c.scopes, s.now()); err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op := c.method + " " + req.URL.Path
	s.logger.Debug("spotify request", "method", c.method, "url", c.url)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug("spotify error response", "op", op, "status", resp.StatusCode, "body", string(data))
		return newUpstreamError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstream, err)
		}
	}
	return nil
}

func newUpstreamError(status int, body []byte) *UpstreamError {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &UpstreamError{Status: status, Message: apiErr.Error.Message}
	}
	return &UpstreamError{Status: status, Message: http.StatusText(status)}
}

// CurrentUser retrieves the profile of the user owning the credential.
func (s *SpotifyService) CurrentUser(ctx context.Context, creds CredentialSource) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.do(ctx, creds, call{method: http.MethodGet, url: s.endpoint("/me", nil)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListPlaylists yields the current user's playlists page by page. Iteration stops after the first error.
func (s *SpotifyService) ListPlaylists(ctx context.Context, creds CredentialSource) iter.Seq2[models.Playlist, error] {
	return func(yield func(models.Playlist, error) bool) {
		next := s.endpoint("/me/playlists", url.Values{"limit": {strconv.Itoa(playlistPageSize)}})
		for next != "" {
			var page playlistPage
			c := call{method: http.MethodGet, url: next, scopes: models.ReadScopes}
			if err := s.do(ctx, creds, c, &page); err != nil {
				yield(models.Playlist{}, err)
				return
			}

			for _, p := range page.Items {
				if !yield(p.toModel(), nil) {
					return
				}
			}
			next = page.Next
		}
	}
}

// GetPlaylists collects [SpotifyService.ListPlaylists], stopping after limit playlists when limit > 0.
func (s *SpotifyService) GetPlaylists(ctx context.Context, creds CredentialSource, limit int) ([]models.Playlist, error) {
	var playlists []models.Playlist
	for p, err := range s.ListPlaylists(ctx, creds) {
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
		if limit > 0 && len(playlists) >= limit {
			break
		}
	}
	return playlists, nil
}

// ListAllTracks follows the playlist's track cursor until exhausted. Pages are concatenated in order.
func (s *SpotifyService) ListAllTracks(ctx context.Context, creds CredentialSource, playlistID string) ([]models.TrackRef, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	next := s.endpoint("/playlists/"+url.PathEscape(playlistID)+"/tracks", url.Values{
		"limit":  {strconv.Itoa(trackPageSize)},
		"fields": {trackFields},
	})

	var tracks []models.TrackRef
	for page := 0; next != ""; page++ {
		var resp trackPage
		c := call{method: http.MethodGet, url: next, scopes: models.ReadScopes}
		if err := s.do(ctx, creds, c, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch tracks page %d: %w", page, err)
		}

		for _, item := range resp.Items {
			tracks = append(tracks, item.toModel())
		}
		next = resp.Next
	}

	s.logger.Debug("fetched playlist tracks", "playlist", playlistID, "count", len(tracks))
	return tracks, nil
}

// Batches splits uris into write batches of at most limit entries. An empty list yields one empty batch.
func Batches(uris []string, limit int) [][]string {
	if len(uris) == 0 {
		return [][]string{{}}
	}
	return slices.Collect(slices.Chunk(uris, limit))
}

// ReplaceTracks overwrites the playlist with uris: the first batch replaces the contents, the rest are appended,
// strictly in order.
//
// A failure on the first batch returns the underlying error with the playlist untouched. A failure after at
// least one accepted batch returns a [*PartialApplyError].
func (s *SpotifyService) ReplaceTracks(ctx context.Context, creds CredentialSource, playlistID string, uris []string, onBatch BatchFunc) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	path := s.endpoint("/playlists/"+url.PathEscape(playlistID)+"/tracks", nil)
	batches := Batches(uris, s.batchLimit)

	for i, batch := range batches {
		method := http.MethodPost
		if i == 0 {
			method = http.MethodPut
		}

		c := call{
			method: method,
			url:    path,
			body:   map[string][]string{"uris": batch},
			scopes: models.ModifyScopes,
		}
		if err := s.do(ctx, creds, c, nil); err != nil {
			s.logger.Error("write batch failed", "playlist", playlistID, "batch", i, "of", len(batches), "error", err)
			if i == 0 {
				return err
			}
			return &PartialApplyError{Applied: i, Total: len(batches), Err: err}
		}

		s.logger.Debug("write batch applied", "playlist", playlistID, "batch", i, "size", len(batch))
		if onBatch != nil {
			onBatch(i, len(batches))
		}
	}
	return nil
}
