package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/ordering"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	SortView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	session      *auth.Session
	catalog      services.Catalog
	engine       tasks.Reorderer
	sorter       *ordering.Sorter
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     models.Playlist
	tracks       []models.TrackRef
	progress     tasks.ProgressUpdate
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	result       *tasks.ReorderResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies. A nil sorter uses the root collation.
func NewModel(ctx context.Context, session *auth.Session, catalog services.Catalog, engine tasks.Reorderer, sorter *ordering.Sorter) *Model {
	if sorter == nil {
		sorter = ordering.NewSorter(shared.DefaultConfig().Sort.Tag())
	}
	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		session:      session,
		catalog:      catalog,
		engine:       engine,
		sorter:       sorter,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching playlists from Spotify.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SortView:
			if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Spotify Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgTracksFetched:
		data := msg.data.(tracksData)
		if data.err != nil {
			m.err = data.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = data.playlist
		m.tracks = data.tracks

		positions := m.sorter.Positions(data.tracks)
		items := make([]list.Item, len(data.tracks))
		for i, track := range data.tracks {
			items[i] = trackItem{track: track, position: positions[i]}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", data.playlist.Name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgSortComplete:
		data := msg.data.(sortData)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case SortView:
		return m.renderSort()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.err = nil
				return m, m.fetchTracks(pl.playlist)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = PlaylistListView
			return m, nil
		case key.Matches(msg, m.keys.sort):
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.yes):
		m.view = SortView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startSort()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.tracks = nil
		m.result = nil
		m.err = nil
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		var playlists []models.Playlist
		for p, err := range m.catalog.ListPlaylists(m.ctx, m.session) {
			if err != nil {
				return playlistsFetchedMsg(nil, err)
			}
			playlists = append(playlists, p)
		}
		return playlistsFetchedMsg(playlists, nil)
	}
}

func (m *Model) fetchTracks(playlist models.Playlist) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.ListAllTracks(m.ctx, m.session, playlist.ID)
		return tracksFetchedMsg(playlist, tracks, err)
	}
}

func (m *Model) startSort() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done

	ctx, sessionID, playlistID := m.ctx, m.session.ID(), m.selected.ID
	go func() {
		result, err := m.engine.Reorder(ctx, sessionID, playlistID, progress)
		close(progress)
		done <- sortCompleteMsg(result, err)
	}()

	return waitForProgress(progress, done)
}

// waitForProgress relays progress updates until the run closes the channel, then yields its completion.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s\n%s", m.playlistList.View(), styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.sort, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sort '%s' by track name?", m.selected.Name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.selected.Name, len(m.tracks))
	if n := unsupported(m.tracks); n > 0 {
		info += styles.warn.Render(fmt.Sprintf("%d tracks are local or unavailable; the sort will be refused.", n)) + "\n"
	} else if m.sorter.IsSorted(m.tracks) {
		info += styles.help.Render("Already in order, nothing will be written.") + "\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSort() string {
	title := styles.title.Render("Sorting Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchTracks:
		phase = "Fetching tracks..."
	case tasks.SortTracks:
		phase = "Sorting tracks..."
	case tasks.WriteTracks:
		phase = fmt.Sprintf("Writing batches (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		msg := fmt.Sprintf("Sort failed: %v", m.err)
		var partial *services.PartialApplyError
		switch {
		case errors.Is(m.err, shared.ErrUnauthorized):
			msg = "Not signed in. Run 'plsort auth login' and try again."
		case errors.As(m.err, &partial):
			msg += fmt.Sprintf("\n%d of %d batches were written; sorting again will finish the job.", partial.Applied, partial.Total)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Playlist sorted")
	if m.result.Unchanged {
		title = styles.ok.Render("✓ Playlist already sorted")
	}
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\nBatches written: %d/%d",
		m.selected.Name, m.result.TrackCount, m.result.AppliedBatches, m.result.TotalBatches)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func unsupported(tracks []models.TrackRef) int {
	var n int
	for _, t := range tracks {
		if t.Local || t.URI == "" {
			n++
		}
	}
	return n
}
