package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgTracksFetched
	MsgProgressUpdate
	MsgSortComplete
)

type playlistsData struct {
	playlists []models.Playlist
	err       error
}

type tracksData struct {
	playlist models.Playlist
	tracks   []models.TrackRef
	err      error
}

type sortData struct {
	result *tasks.ReorderResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsData{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(playlist models.Playlist, tracks []models.TrackRef, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksData{playlist, tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// sortCompleteMsg is the constructor for [MsgSortComplete]
func sortCompleteMsg(result *tasks.ReorderResult, err error) Msg {
	return Msg{kind: MsgSortComplete, data: sortData{result, err}}
}
