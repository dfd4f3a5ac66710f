package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume ledger events from AMQP and write the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker()
		},
	}
}

func runWorker() error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.EventsBackend != "amqp" {
		return fmt.Errorf("worker requires EVENTS_BACKEND=amqp, got %q", cfg.EventsBackend)
	}

	client, err := events.NewAMQPClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize amqp client: %w", err)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	auditor := worker.NewAuditor(logger)

	logger.Info("Starting event worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	if err := client.Consume(ctx, auditor.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		return err
	}
	logger.Info("Worker stopped")
	return nil
}
