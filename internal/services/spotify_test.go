package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/shared"
	tu "github.com/desertthunder/plsort/internal/testing"
)

const testToken = "test-token"

func newTestService(baseURL string) *SpotifyService {
	return NewSpotifyService(Options{
		BaseURL:        baseURL,
		RetryBaseDelay: time.Millisecond,
		Logger:         shared.NewLogger(io.Discard),
	})
}

func creds() StaticCredential {
	return StaticCredential(tu.Credential(testToken))
}

func numberedTracks(n int) []models.TrackRef {
	tracks := make([]models.TrackRef, n)
	for i := range tracks {
		tracks[i] = models.TrackRef{URI: fmt.Sprintf("spotify:track:%03d", i), Name: fmt.Sprintf("Track %03d", i)}
	}
	return tracks
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSpotifyService defaults", func(t *testing.T) {
		srv := NewSpotifyService(Options{})
		if srv.baseURL != DefaultBaseURL {
			t.Errorf("expected base URL %s, got %s", DefaultBaseURL, srv.baseURL)
		}
		if srv.BatchLimit() != DefaultBatchLimit {
			t.Errorf("expected batch limit %d, got %d", DefaultBatchLimit, srv.BatchLimit())
		}
		if srv.retryAttempts != DefaultRetryAttempts {
			t.Errorf("expected %d attempts, got %d", DefaultRetryAttempts, srv.retryAttempts)
		}

		capped := NewSpotifyService(Options{BatchLimit: 500})
		if capped.BatchLimit() != DefaultBatchLimit {
			t.Errorf("expected batch limit capped at %d, got %d", DefaultBatchLimit, capped.BatchLimit())
		}
	})

	t.Run("OptionsFromConfig", func(t *testing.T) {
		cfg := shared.DefaultConfig().Spotify
		opts := OptionsFromConfig(cfg, nil)
		if opts.BaseURL != cfg.APIURL || opts.BatchLimit != cfg.BatchLimit {
			t.Errorf("unexpected options %+v", opts)
		}
		if opts.HTTPClient == nil || opts.HTTPClient.Timeout != cfg.Timeout.Duration {
			t.Error("expected HTTP client with configured timeout")
		}
		if opts.RetryBaseDelay != 250*time.Millisecond {
			t.Errorf("expected 250ms retry delay, got %v", opts.RetryBaseDelay)
		}
	})

	t.Run("Credential checks", func(t *testing.T) {
		tests := []struct {
			name string
			cred models.Credential
			want error
		}{
			{name: "Empty", cred: models.Credential{}, want: shared.ErrUnauthorized},
			{
				name: "Expired",
				cred: models.Credential{AccessToken: "a", Scopes: models.AllScopes(), Expiry: time.Now().Add(-time.Hour)},
				want: shared.ErrTokenExpired,
			},
			{
				name: "Missing scope",
				cred: models.Credential{AccessToken: "a", Scopes: models.ReadScopes},
				want: shared.ErrMissingScope,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rt := tu.NewMockRoundTripper(nil, errors.New("must not be called"))
				srv := NewSpotifyService(Options{HTTPClient: &http.Client{Transport: rt}})

				err := srv.ReplaceTracks(ctx, StaticCredential(tt.cred), "p1", []string{"u1"}, nil)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if !errors.Is(err, shared.ErrUnauthorized) {
					t.Errorf("expected ErrUnauthorized, got %v", err)
				}
				if rt.Calls() != 0 {
					t.Errorf("expected no network calls, got %d", rt.Calls())
				}
			})
		}

		t.Run("Source error is returned", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(nil, errors.New("must not be called"))
			srv := NewSpotifyService(Options{HTTPClient: &http.Client{Transport: rt}})

			_, err := srv.ListAllTracks(ctx, failingSource{}, "p1")
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if rt.Calls() != 0 {
				t.Errorf("expected no network calls, got %d", rt.Calls())
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t, testToken)
		fake.SetUser("alice", "Alice")
		srv := newTestService(fake.URL())

		user, err := srv.CurrentUser(ctx, creds())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "alice" || user.DisplayName != "Alice" {
			t.Errorf("unexpected user %+v", user)
		}

		reqs := fake.Requests()
		if len(reqs) != 1 || reqs[0].Auth != "Bearer "+testToken {
			t.Errorf("expected one bearer request, got %+v", reqs)
		}
	})

	t.Run("ListPlaylists", func(t *testing.T) {
		t.Run("Follows cursor", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.SetPageSize(2)
			for i := range 5 {
				fake.AddPlaylist(models.Playlist{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("List %d", i), OwnerID: "user-1"}, numberedTracks(i))
			}
			srv := newTestService(fake.URL())

			playlists, err := srv.GetPlaylists(ctx, creds(), 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 5 {
				t.Fatalf("expected 5 playlists, got %d", len(playlists))
			}
			if playlists[3].ID != "p3" || playlists[3].TrackCount != 3 || playlists[3].OwnerID != "user-1" {
				t.Errorf("unexpected playlist %+v", playlists[3])
			}
			if n := len(fake.Requests()); n != 3 {
				t.Errorf("expected 3 page requests, got %d", n)
			}
		})

		t.Run("Limit stops early", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.SetPageSize(2)
			for i := range 5 {
				fake.AddPlaylist(models.Playlist{ID: fmt.Sprintf("p%d", i)}, nil)
			}
			srv := newTestService(fake.URL())

			playlists, err := srv.GetPlaylists(ctx, creds(), 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 2 {
				t.Errorf("expected 2 playlists, got %d", len(playlists))
			}
			if n := len(fake.Requests()); n != 1 {
				t.Errorf("expected 1 page request, got %d", n)
			}
		})

		t.Run("Upstream error", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, "other-token")
			srv := newTestService(fake.URL())

			_, err := srv.GetPlaylists(ctx, creds(), 0)
			var upstream *UpstreamError
			if !errors.As(err, &upstream) || upstream.Status != http.StatusUnauthorized {
				t.Fatalf("expected 401 UpstreamError, got %v", err)
			}
			if !errors.Is(err, shared.ErrUpstream) || !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUpstream and ErrUnauthorized, got %v", err)
			}
			if upstream.Message != "The access token expired" {
				t.Errorf("expected API message, got %q", upstream.Message)
			}
		})
	})

	t.Run("ListAllTracks", func(t *testing.T) {
		t.Run("Concatenates pages in order", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.SetPageSize(50)
			tracks := numberedTracks(107)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, tracks)
			srv := newTestService(fake.URL())

			got, err := srv.ListAllTracks(ctx, creds(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !slices.Equal(got, tracks) {
				t.Errorf("expected %d tracks in stored order, got %d", len(tracks), len(got))
			}

			reqs := fake.Requests()
			if len(reqs) != 3 {
				t.Fatalf("expected 3 page requests, got %d", len(reqs))
			}
			if !strings.Contains(reqs[0].Query, "fields=") {
				t.Errorf("expected fields filter, got %s", reqs[0].Query)
			}
		})

		t.Run("Local and unavailable entries", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, []models.TrackRef{
				{URI: "spotify:local:a", Name: "Local", Local: true},
				{URI: "", Name: "Gone"},
			})
			srv := newTestService(fake.URL())

			got, err := srv.ListAllTracks(ctx, creds(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !got[0].Local {
				t.Error("expected first track to be local")
			}
			if got[1].URI != "" {
				t.Errorf("expected unavailable track without URI, got %q", got[1].URI)
			}
		})

		t.Run("Later page failure returns nothing", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.SetPageSize(50)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, numberedTracks(107))
			fake.FailReadAt(2, http.StatusBadGateway)
			srv := newTestService(fake.URL())

			got, err := srv.ListAllTracks(ctx, creds(), "p1")
			if got != nil {
				t.Errorf("expected no tracks, got %d", len(got))
			}
			var upstream *UpstreamError
			if !errors.As(err, &upstream) || upstream.Status != http.StatusBadGateway {
				t.Errorf("expected 502 UpstreamError, got %v", err)
			}
			if n := len(fake.Requests()); n != 2 {
				t.Errorf("expected 2 page requests, got %d", n)
			}
		})

		t.Run("Not found", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			srv := newTestService(fake.URL())

			_, err := srv.ListAllTracks(ctx, creds(), "missing")
			var upstream *UpstreamError
			if !errors.As(err, &upstream) || upstream.Status != http.StatusNotFound {
				t.Errorf("expected 404 UpstreamError, got %v", err)
			}
		})

		t.Run("Missing playlist id", func(t *testing.T) {
			srv := newTestService("http://127.0.0.1:0")
			if _, err := srv.ListAllTracks(ctx, creds(), ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("ReplaceTracks", func(t *testing.T) {
		t.Run("Splits into batches", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			tracks := numberedTracks(250)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, tracks)
			srv := newTestService(fake.URL())

			reversed := slices.Clone(models.URIs(tracks))
			slices.Reverse(reversed)

			var applied []int
			err := srv.ReplaceTracks(ctx, creds(), "p1", reversed, func(index, total int) {
				if total != 3 {
					t.Errorf("expected 3 batches, got %d", total)
				}
				applied = append(applied, index)
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			writes := fake.Writes()
			if len(writes) != 3 {
				t.Fatalf("expected 3 writes, got %d", len(writes))
			}
			for i, want := range []struct {
				method string
				size   int
			}{{http.MethodPut, 100}, {http.MethodPost, 100}, {http.MethodPost, 50}} {
				if writes[i].Method != want.method || len(writes[i].URIs) != want.size {
					t.Errorf("batch %d: expected %s with %d uris, got %s with %d", i, want.method, want.size, writes[i].Method, len(writes[i].URIs))
				}
			}
			if !slices.Equal(applied, []int{0, 1, 2}) {
				t.Errorf("expected batches 0,1,2 observed, got %v", applied)
			}
			if got := models.URIs(fake.Tracks("p1")); !slices.Equal(got, reversed) {
				t.Error("expected playlist to hold the new order")
			}
		})

		t.Run("Second batch fails", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			tracks := numberedTracks(250)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, tracks)
			fake.FailWriteAt(2, http.StatusInternalServerError)
			srv := newTestService(fake.URL())

			err := srv.ReplaceTracks(ctx, creds(), "p1", models.URIs(tracks), nil)

			var partial *PartialApplyError
			if !errors.As(err, &partial) {
				t.Fatalf("expected PartialApplyError, got %v", err)
			}
			if partial.Applied != 1 || partial.Total != 3 {
				t.Errorf("expected 1 of 3 applied, got %d of %d", partial.Applied, partial.Total)
			}
			if !errors.Is(err, shared.ErrPartialApply) || !errors.Is(err, shared.ErrUpstream) {
				t.Errorf("expected ErrPartialApply wrapping ErrUpstream, got %v", err)
			}
			if n := len(fake.Writes()); n != 2 {
				t.Errorf("expected no writes after failure, got %d writes", n)
			}
			if n := len(fake.Tracks("p1")); n != 100 {
				t.Errorf("expected playlist to hold the first batch, got %d tracks", n)
			}
		})

		t.Run("First batch fails", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, numberedTracks(3))
			fake.FailWriteAt(1, http.StatusForbidden)
			srv := newTestService(fake.URL())

			err := srv.ReplaceTracks(ctx, creds(), "p1", []string{"a"}, nil)
			var partial *PartialApplyError
			if errors.As(err, &partial) {
				t.Fatalf("expected no PartialApplyError, got %v", err)
			}
			var upstream *UpstreamError
			if !errors.As(err, &upstream) || upstream.Status != http.StatusForbidden {
				t.Errorf("expected 403 UpstreamError, got %v", err)
			}
		})

		t.Run("Empty list clears playlist", func(t *testing.T) {
			fake := tu.NewFakeSpotify(t, testToken)
			fake.AddPlaylist(models.Playlist{ID: "p1"}, numberedTracks(3))
			srv := newTestService(fake.URL())

			if err := srv.ReplaceTracks(ctx, creds(), "p1", nil, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			writes := fake.Writes()
			if len(writes) != 1 || writes[0].Method != http.MethodPut || writes[0].URIs == nil {
				t.Errorf("expected one PUT with an empty list, got %+v", writes)
			}
			if n := len(fake.Tracks("p1")); n != 0 {
				t.Errorf("expected empty playlist, got %d tracks", n)
			}
		})
	})

	t.Run("Retries", func(t *testing.T) {
		t.Run("GET is retried on transient failure", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(nil, errors.New("connection reset by peer"))
			srv := NewSpotifyService(Options{
				HTTPClient:     &http.Client{Transport: rt},
				RetryBaseDelay: time.Millisecond,
			})

			_, err := srv.ListAllTracks(ctx, creds(), "p1")
			if !errors.Is(err, shared.ErrTransient) {
				t.Errorf("expected ErrTransient, got %v", err)
			}
			if rt.Calls() != DefaultRetryAttempts {
				t.Errorf("expected %d attempts, got %d", DefaultRetryAttempts, rt.Calls())
			}
		})

		t.Run("POST is not retried", func(t *testing.T) {
			rt := &sequenceRoundTripper{responses: []func() (*http.Response, error){
				func() (*http.Response, error) { return jsonResponse(http.StatusOK, `{"snapshot_id":"a"}`), nil },
				func() (*http.Response, error) { return nil, errors.New("connection reset by peer") },
			}}
			srv := NewSpotifyService(Options{
				HTTPClient:     &http.Client{Transport: rt},
				BatchLimit:     1,
				RetryBaseDelay: time.Millisecond,
			})

			err := srv.ReplaceTracks(ctx, creds(), "p1", []string{"a", "b", "c"}, nil)
			var partial *PartialApplyError
			if !errors.As(err, &partial) || partial.Applied != 1 {
				t.Fatalf("expected PartialApplyError with 1 applied, got %v", err)
			}
			if !errors.Is(err, shared.ErrTransient) {
				t.Errorf("expected ErrTransient cause, got %v", err)
			}
			if rt.calls != 2 {
				t.Errorf("expected 2 round trips, got %d", rt.calls)
			}
		})

		t.Run("Recovers after transient failure", func(t *testing.T) {
			rt := &sequenceRoundTripper{responses: []func() (*http.Response, error){
				func() (*http.Response, error) { return nil, errors.New("i/o timeout") },
				func() (*http.Response, error) {
					return jsonResponse(http.StatusOK, `{"items":[{"track":{"name":"A","uri":"u1"}}],"next":null}`), nil
				},
			}}
			srv := NewSpotifyService(Options{
				HTTPClient:     &http.Client{Transport: rt},
				RetryBaseDelay: time.Millisecond,
			})

			got, err := srv.ListAllTracks(ctx, creds(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != 1 || got[0].URI != "u1" {
				t.Errorf("unexpected tracks %+v", got)
			}
		})

		t.Run("Body read failure is transient", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			rt := tu.NewMockRoundTripper(resp, nil)
			srv := NewSpotifyService(Options{
				HTTPClient:     &http.Client{Transport: rt},
				RetryAttempts:  1,
				RetryBaseDelay: time.Millisecond,
			})

			if _, err := srv.CurrentUser(ctx, creds()); !errors.Is(err, shared.ErrTransient) {
				t.Errorf("expected ErrTransient, got %v", err)
			}
		})

		t.Run("Upstream errors are not retried", func(t *testing.T) {
			rt := &sequenceRoundTripper{responses: []func() (*http.Response, error){
				func() (*http.Response, error) {
					return jsonResponse(http.StatusInternalServerError, `{"error":{"status":500,"message":"boom"}}`), nil
				},
			}}
			srv := NewSpotifyService(Options{HTTPClient: &http.Client{Transport: rt}})

			if _, err := srv.CurrentUser(ctx, creds()); !errors.Is(err, shared.ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
			if rt.calls != 1 {
				t.Errorf("expected 1 round trip, got %d", rt.calls)
			}
		})

		t.Run("Cancelled context", func(t *testing.T) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			rt := tu.NewMockRoundTripper(nil, context.Canceled)
			srv := NewSpotifyService(Options{HTTPClient: &http.Client{Transport: rt}})

			_, err := srv.ListAllTracks(cctx, creds(), "p1")
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if errors.Is(err, shared.ErrTransient) {
				t.Errorf("expected cancellation not to be transient, got %v", err)
			}
		})
	})

	t.Run("Batches", func(t *testing.T) {
		uris := models.URIs(numberedTracks(250))
		sizes := []int{}
		for _, b := range Batches(uris, 100) {
			sizes = append(sizes, len(b))
		}
		if !slices.Equal(sizes, []int{100, 100, 50}) {
			t.Errorf("expected [100 100 50], got %v", sizes)
		}

		empty := Batches(nil, 100)
		if len(empty) != 1 || empty[0] == nil || len(empty[0]) != 0 {
			t.Errorf("expected one empty batch, got %v", empty)
		}
	})
}

func TestCredentialPerRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("ListAllTracks asks for every page", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t, "")
		fake.SetPageSize(50)
		fake.AddPlaylist(models.Playlist{ID: "p1"}, numberedTracks(107))
		source := &rotatingSource{}

		if _, err := newTestService(fake.URL()).ListAllTracks(ctx, source, "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertRotated(t, source, fake.Requests(), 3)
	})

	t.Run("ReplaceTracks asks for every batch", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t, "")
		tracks := numberedTracks(250)
		fake.AddPlaylist(models.Playlist{ID: "p1"}, tracks)
		source := &rotatingSource{}

		if err := newTestService(fake.URL()).ReplaceTracks(ctx, source, "p1", models.URIs(tracks), nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		assertRotated(t, source, fake.Writes(), 3)
	})
}

func assertRotated(t *testing.T, source *rotatingSource, reqs []tu.RecordedRequest, want int) {
	t.Helper()
	if len(reqs) != want {
		t.Fatalf("expected %d requests, got %d", want, len(reqs))
	}
	if source.calls != want {
		t.Errorf("expected %d credential lookups, got %d", want, source.calls)
	}
	for i, req := range reqs {
		if expected := fmt.Sprintf("Bearer token-%d", i+1); req.Auth != expected {
			t.Errorf("request %d: expected %q, got %q", i, expected, req.Auth)
		}
	}
}

// rotatingSource hands out token-1, token-2, ... so each request shows which lookup it used.
type rotatingSource struct {
	calls int
}

func (s *rotatingSource) Credential(context.Context) (models.Credential, error) {
	s.calls++
	return tu.Credential(fmt.Sprintf("token-%d", s.calls)), nil
}

type failingSource struct{}

func (failingSource) Credential(context.Context) (models.Credential, error) {
	return models.Credential{}, fmt.Errorf("%w: signed out", shared.ErrUnauthorized)
}

// sequenceRoundTripper replays responses in order, repeating the last one.
type sequenceRoundTripper struct {
	responses []func() (*http.Response, error)
	calls     int
}

func (s *sequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := min(s.calls, len(s.responses)-1)
	s.calls++
	return s.responses[i]()
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
