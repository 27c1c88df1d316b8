package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/tasks"
	tu "github.com/desertthunder/plsort/internal/testing"
)

const testToken = "test-token"

func newTestModel(t *testing.T) (*Model, *tu.FakeSpotify) {
	t.Helper()
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	fake := tu.NewFakeSpotify(t, testToken)
	catalog := services.NewSpotifyService(services.Options{BaseURL: fake.URL(), RetryBaseDelay: time.Millisecond, Logger: logger})
	gate := auth.NewGate(auth.NewMemoryStore(), nil, logger)

	rec, err := gate.StartSession(ctx, "user-1", "Test User", tu.Credential(testToken))
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	session, err := gate.RequireSession(ctx, rec.ID())
	if err != nil {
		t.Fatalf("failed to resolve session: %v", err)
	}

	engine := tasks.NewPlaylistEngine(gate, catalog, nil, 0, logger)
	m := NewModel(ctx, session, catalog, engine, nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m, fake
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// run executes cmd and feeds resulting messages back into the model until no command remains.
func run(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func press(m *Model, s string) {
	_, cmd := m.Update(keyPress(s))
	run(m, cmd)
}

func TestModel(t *testing.T) {
	t.Run("Sort flow", func(t *testing.T) {
		m, fake := newTestModel(t)
		fake.AddPlaylist(models.Playlist{ID: "p1", Name: "Mix"}, tu.Tracks("u1", "Zebra", "u2", "apple", "u3", "Mango"))

		run(m, m.Init())
		if n := len(m.playlistList.Items()); n != 1 {
			t.Fatalf("expected 1 playlist, got %d", n)
		}

		press(m, "enter")
		if m.view != TrackListView {
			t.Fatalf("expected track list view, got %v", m.view)
		}
		var positions []int
		for _, it := range m.trackList.Items() {
			positions = append(positions, it.(trackItem).position)
		}
		if want := []int{2, 0, 1}; !slices.Equal(positions, want) {
			t.Errorf("expected positions %v, got %v", want, positions)
		}

		press(m, "enter")
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Sort 'Mix' by track name?") {
			t.Errorf("unexpected confirm view %q", m.View())
		}

		press(m, "y")
		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if m.err != nil {
			t.Fatalf("expected no error, got %v", m.err)
		}
		if m.result == nil || m.result.AppliedBatches != 1 {
			t.Errorf("unexpected result %+v", m.result)
		}
		if got := models.URIs(fake.Tracks("p1")); !slices.Equal(got, []string{"u2", "u3", "u1"}) {
			t.Errorf("expected playlist to be sorted, got %v", got)
		}
		if !strings.Contains(m.View(), "Playlist sorted") {
			t.Errorf("unexpected result view %q", m.View())
		}

		press(m, "r")
		if m.view != PlaylistListView || m.result != nil {
			t.Errorf("expected reset to playlist list, got view %v", m.view)
		}
	})

	t.Run("List views show navigation keys", func(t *testing.T) {
		m, fake := newTestModel(t)
		fake.AddPlaylist(models.Playlist{ID: "p1", Name: "Mix"}, tu.Tracks("u1", "Zebra", "u2", "apple"))

		run(m, m.Init())
		for _, want := range []string{"↑/k up", "↓/j down", "enter select"} {
			if !strings.Contains(m.View(), want) {
				t.Errorf("expected playlist view help to contain %q, got %q", want, m.View())
			}
		}

		press(m, "enter")
		for _, want := range []string{"↑/k up", "↓/j down", "enter sort", "esc back"} {
			if !strings.Contains(m.View(), want) {
				t.Errorf("expected track view help to contain %q, got %q", want, m.View())
			}
		}
	})

	t.Run("Decline confirmation", func(t *testing.T) {
		m, fake := newTestModel(t)
		fake.AddPlaylist(models.Playlist{ID: "p1", Name: "Mix"}, tu.Tracks("u1", "b", "u2", "a"))

		run(m, m.Init())
		press(m, "enter")
		press(m, "enter")
		press(m, "n")
		if m.view != TrackListView {
			t.Errorf("expected track list view, got %v", m.view)
		}
		if n := len(fake.Writes()); n != 0 {
			t.Errorf("expected no writes, got %d", n)
		}

		press(m, "esc")
		if m.view != PlaylistListView {
			t.Errorf("expected playlist list view, got %v", m.view)
		}
	})

	t.Run("Local tracks warned", func(t *testing.T) {
		m, fake := newTestModel(t)
		tracks := tu.Tracks("u1", "b", "", "home recording")
		tracks[1].Local = true
		fake.AddPlaylist(models.Playlist{ID: "p1", Name: "Mix"}, tracks)

		run(m, m.Init())
		press(m, "enter")
		press(m, "enter")
		if !strings.Contains(m.View(), "the sort will be refused") {
			t.Errorf("expected refusal warning, got %q", m.View())
		}

		press(m, "y")
		if !errors.Is(m.err, shared.ErrUnsupportedTrack) {
			t.Errorf("expected ErrUnsupportedTrack, got %v", m.err)
		}
	})

	t.Run("Fetch failure", func(t *testing.T) {
		m, _ := newTestModel(t)
		run(m, m.Init())

		_, cmd := m.Update(tracksFetchedMsg(models.Playlist{ID: "gone"}, nil, fmt.Errorf("boom")))
		run(m, cmd)
		if m.view != PlaylistListView {
			t.Errorf("expected playlist list view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "boom") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("Render results", func(t *testing.T) {
		m, _ := newTestModel(t)
		m.view = ResultView

		m.err = fmt.Errorf("reorder: %w", shared.ErrUnauthorized)
		if !strings.Contains(m.View(), "plsort auth login") {
			t.Errorf("expected sign-in hint, got %q", m.View())
		}

		m.err = &services.PartialApplyError{Applied: 1, Total: 3, Err: fmt.Errorf("boom")}
		if !strings.Contains(m.View(), "1 of 3 batches") {
			t.Errorf("expected partial apply detail, got %q", m.View())
		}

		m.err = nil
		m.result = &tasks.ReorderResult{TrackCount: 3, Unchanged: true}
		if !strings.Contains(m.View(), "already sorted") {
			t.Errorf("expected unchanged message, got %q", m.View())
		}
	})
}
