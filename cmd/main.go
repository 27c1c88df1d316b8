package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/plsort/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	config.ApplyEnv()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: "config.toml",
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:    "plsort",
		Usage:   "Sort Spotify playlists by track name",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, runner.loadConfig(cmd.String("config"))
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrUnauthorized):
			logger.Error("not signed in to Spotify, run 'plsort auth login'", "error", err)
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Error("Spotify client credentials missing, run 'plsort setup config'", "error", err)
		default:
			logger.Error("application error", "error", err)
		}
		runner.Close()
		os.Exit(1)
	}
}
