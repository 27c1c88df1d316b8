package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plsort/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	authKey, encKey, err := r.config.Server.CookieKeys()
	if err != nil {
		return err
	}

	gate, err := r.gate(ctx)
	if err != nil {
		return err
	}

	cookies := server.NewCookies(authKey, encKey, r.config.Server.CookieSecure, r.logger)
	router := server.NewRouter(r.logger,
		server.NewAuthHandler(r.oauth, gate, r.catalog, cookies, r.logger),
		server.NewAPIHandler(gate, r.catalog, r.engine(gate), cookies, r.logger),
	)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, server.NewHTTPServer(addr, router), r.logger)
}
