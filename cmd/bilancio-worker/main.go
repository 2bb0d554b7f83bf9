package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"bilancio/internal/cli"
	"bilancio/internal/events"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	var journal io.Writer = os.Stdout
	if cfg.ActivityLogPath != "" {
		f, err := os.OpenFile(cfg.ActivityLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("Failed to open activity log", log.FieldError, err, log.FieldFile, cfg.ActivityLogPath)
			os.Exit(1)
		}
		defer f.Close()
		journal = f
	}

	consumer := events.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err := consumer.Connect(); err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	activity := worker.NewActivityWorker(journal, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	go activity.ReportEvery(ctx, 5*time.Minute)

	logger.Info("Starting bilancio worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPRoutingKey)
	err := consumer.Consume(ctx, activity.Handle)
	if cerr := consumer.Close(); cerr != nil {
		logger.Error("AMQP close error", log.FieldError, cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	s := activity.Stats()
	logger.Info("Worker stopped", "loaded", s.Loaded, "deleted", s.Deleted, "active", s.Active)
}
