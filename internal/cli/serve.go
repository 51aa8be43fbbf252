// Package cli provides the supportd CLI commands.
package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/wire"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the escalation API server",
		Long: `Start the HTTP API server, the background maintenance loop, and the
channel transports. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := wire.Logger()
			cfg := wire.Config()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wire.Bisq2Adapter().Connect(ctx)
			go wire.MaintenanceService().Run(ctx)

			server := wire.WebServer()
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run(cfg.HTTP.ListenAddr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP shutdown did not complete cleanly", zap.Error(err))
			}
			// Let in-flight notification deliveries finish.
			wire.DeliveryService().Wait()
			return nil
		},
	}
	return cmd
}
