package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/plsort/internal/auth"
	"github.com/desertthunder/plsort/internal/services"
	"github.com/desertthunder/plsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadConfig replaces the default configuration with the file at path when it exists.
func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	r.config = config
	r.oauth = auth.NewOAuthConfig(config.Credentials.Spotify)
	r.catalog = services.NewSpotifyService(services.OptionsFromConfig(config.Spotify, r.logger))
	return nil
}

// SetupConfig writes the example configuration to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or %s / %s)\n", shared.EnvClientID, shared.EnvClientSecret)
	r.writePlain("2. Run 'plsort setup database'\n")
	r.writePlain("3. Run 'plsort auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.sessions(ctx); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}
