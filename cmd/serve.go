package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/avatarsheet/internal/handlers"
	"github.com/lehigh-university-libraries/avatarsheet/internal/images"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"github.com/lehigh-university-libraries/avatarsheet/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port     string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the badge editor API",
		Long: `Starts the avatarsheet HTTP API on the specified port.

Upload up to six photos, adjust zoom and pan, retouch them with a generative
image service, and download single badges or the full A4 sheet.`,
		Example: `  # Start server on default port 8888
  avatarsheet serve

  # Start server on custom port without AI retouching
  avatarsheet serve --port 3000 --provider none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			retoucher, err := newRetoucher(provider)
			if err != nil {
				return err
			}

			controller := session.New(storage.New(), controllerOptions(retoucher, session.WithContext(cmd.Context()))...)
			handler := handlers.New(controller, images.NewFetcher())

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Avatarsheet API available", "addr", addr, "url", "http://localhost"+addr, "retouch", controller.RetouchEnabled())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				controller.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&provider, "provider", "", "Retouch provider: gemini, openai, ollama or none (default $RETOUCH_PROVIDER or gemini)")

	return cmd
}
