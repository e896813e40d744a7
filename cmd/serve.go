package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/server"
)

var (
	servePort         int
	serveNoPlayground bool
	serveWatchDir     string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the GraphQL server",
	Long: `Start an HTTP server that serves the GraphQL API.

The server exposes:
  - GraphQL endpoint at /graphql (POST, GET and websocket subscriptions)
  - GraphQL Playground at / unless disabled
  - Health check at /health

Examples:
  # Start server on the configured port (4000 by default)
  catalog serve

  # Start server on a custom port
  catalog serve --port 3000

  # Import markdown books dropped into ./incoming while serving
  catalog serve --watch ./incoming`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if serveNoPlayground {
			cfg.Server.Playground = false
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runServer(commandContext(cmd))
	},
}

func runServer(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(server.Options{
		Port:       cfg.Server.Port,
		Playground: cfg.Server.Playground,
		Origins:    cfg.Server.Origins,
		Catalog:    app.catalog,
		Events:     app.events,
		Gate:       auth.NewGate(app.tokens, app.store),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}

	slog.Info("catalog server starting",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"playground", cfg.Server.Playground)

	if serveWatchDir != "" {
		go func() {
			if err := app.catalog.WatchBooks(ctx, serveWatchDir, nil); err != nil {
				slog.Error("book watcher stopped", "dir", serveWatchDir, "error", err)
			}
		}()
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("catalog server stopped")
	return nil
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 4000, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoPlayground, "no-playground", false, "Do not serve the GraphQL playground")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "Import markdown books added to this directory")
	rootCmd.AddCommand(serveCmd)
}
