package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/kafka"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/worker"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Consume run requests and execute them",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := bootstrap.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.RequestTopic == "" {
		return fmt.Errorf("kafka.brokers and kafka.request_topic are required")
	}

	app, err := bootstrap.Open(cfg, bootstrap.Needs{Warehouse: true, Events: true})
	if err != nil {
		return err
	}
	defer app.Close()

	runner, err := app.Runner()
	if err != nil {
		return err
	}

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "crm-analytics"
	}
	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.RequestTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewRunConsumer(consumer, runner, logger.Log)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("run worker started",
		zap.String("topic", cfg.Kafka.RequestTopic),
		zap.String("group", groupID))

	return w.Run(ctx)
}
