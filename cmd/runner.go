package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/models"
	"github.com/desertthunder/plsort/internal/ordering"
	"github.com/desertthunder/plsort/internal/repositories"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/desertthunder/plsort/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// sessionStore is the session persistence used by the CLI. The most recent session is the signed-in one.
type sessionStore interface {
	auth.Store
	Latest(ctx context.Context) (*models.Session, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	oauth      *oauth2.Config
	db         *sql.DB
	store      sessionStore
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	OAuth      *oauth2.Config
	DB         *sql.DB // opened from Config.Database on first use when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OAuth == nil {
		opts.OAuth = auth.NewOAuthConfig(opts.Config.Credentials.Spotify)
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewSpotifyService(services.OptionsFromConfig(opts.Config.Spotify, opts.Logger))
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		oauth:      opts.OAuth,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, tracksCommand, sortCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to send output to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// sessions opens the session store, creating the schema when needed.
func (r *Runner) sessions(ctx context.Context) (sessionStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
	}

	if err := shared.RunMigrations(ctx, r.db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.store = repositories.NewSessionRepository(r.db)
	return r.store, nil
}

func (r *Runner) gate(ctx context.Context) (*auth.Gate, error) {
	store, err := r.sessions(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewGate(store, auth.NewOAuthRefresher(r.oauth), r.logger), nil
}

func (r *Runner) engine(gate *auth.Gate) *tasks.PlaylistEngine {
	sorter := ordering.NewSorter(r.config.Sort.Tag())
	return tasks.NewPlaylistEngine(gate, r.catalog, sorter, r.config.Reorder.InFlightTTL.Duration, r.logger)
}

// currentSession returns the signed-in session, refreshing its credential when it has expired.
func (r *Runner) currentSession(ctx context.Context, gate *auth.Gate) (*auth.Session, error) {
	store, err := r.sessions(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := store.Latest(ctx)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: not signed in", shared.ErrUnauthorized)
	} else if err != nil {
		return nil, err
	}

	return gate.RequireSession(ctx, latest.ID())
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
