package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsort/internal/ordering"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist sorting.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/plsort-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.catalog = services.NewSpotifyService(services.OptionsFromConfig(r.config.Spotify, fileLogger))

	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}
	session, err := r.currentSession(ctx, gate)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, session, r.catalog, r.engine(gate), ordering.NewSorter(r.config.Sort.Tag()))
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
