package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/dcloud-assistant/internal/adapters/httpapi"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const evictionInterval = time.Minute

func newServeCmd(loader *appLoader) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.load(cmd.Context())
			if err != nil {
				return err
			}

			if listen == "" {
				listen = app.cfg.Server.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go evictPeriodically(ctx, app)

			gin.SetMode(gin.ReleaseMode)
			router := httpapi.NewRouter(httpapi.Dependencies{
				Sessions:  app.sessions,
				Asker:     app.orchestrator,
				Instances: app.registry,
				Logger:    app.logger,
			})

			err = httpapi.Serve(ctx, listen, router, app.logger)
			app.sessions.Shutdown()
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from server.listen)")

	return cmd
}

// evictPeriodically applies the session eviction policy between requests.
func evictPeriodically(ctx context.Context, app *app) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := app.sessions.EvictIfDue(); evicted > 0 {
				app.logger.Info().Int("evicted", evicted).Msg("idle session eviction")
			}
		}
	}
}
