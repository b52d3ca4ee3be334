package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the attribution API for the dashboard",
		Long: `Start the HTTP API that the dashboard frontend reads. Every request
recomputes from the stored snapshot; run 'mojo sync' (or POST a matcher run)
to refresh the data it serves.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8087", "listen address")
	cmd.Flags().StringSlice("allow-origin", []string{"*"}, "allowed CORS origins")
	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.allow_origins", cmd.Flags().Lookup("allow-origin"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := newBackendClient()
	if err != nil {
		return err
	}
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	server := newAPIServer(store, client)
	addr := viper.GetString("serve.addr")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(viper.GetStringSlice("serve.allow_origins")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	}
}
