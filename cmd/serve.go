package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	httpSrv "github.com/jmehdipour/crm-analytics/internal/http"
	"github.com/jmehdipour/crm-analytics/internal/kafka"
	"github.com/jmehdipour/crm-analytics/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		app, err := bootstrap.Open(cfg, bootstrap.Needs{})
		if err != nil {
			return err
		}
		defer app.Close()

		deps := httpSrv.Deps{Store: app.Store, Facts: app.Facts, Redis: app.Redis}
		if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.RequestTopic != "" {
			runs := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic)
			defer func() { _ = runs.Close() }()
			deps.Runs = runs
		}

		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		ctx, stop := signalContext()
		defer stop()

		select {
		case <-ctx.Done():
			logger.Log.Info("signal received, shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		return nil
	},
}
