package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/api"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/setup"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the negotiation HTTP API",
	Long: `Starts the HTTP API under /api/v1 with an OpenAPI document at
/api/v1/openapi.json. Expired sessions are swept every
sessions.expiry.cleanup_interval. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default: server.address from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Address = listenAddr
	}
	deps, err := setup.Wire(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	server := api.NewServer(cfg.Server, api.NewHandler(deps, Version, logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go deps.Sessions.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("Starting negotiator API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
