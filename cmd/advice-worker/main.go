package main

import (
	"context"
	"errors"
	"os"

	"finadvisor/internal/amqp"
	"finadvisor/internal/cli"
	"finadvisor/internal/log"
	"finadvisor/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the advice worker")
		os.Exit(1)
	}

	logger.Info("Starting advice-worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	err = client.ConsumeAdviceEvents(ctx, func(evt *amqp.AdviceEvent) error {
		return handleAdviceEvent(ctx, logger, evt)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Advice worker stopped")
}

// handleAdviceEvent records a served advice response. Events carry no user
// text, so only the operation, persona and source are logged.
func handleAdviceEvent(ctx context.Context, logger *log.Logger, evt *amqp.AdviceEvent) error {
	if evt.Type != amqp.EventAdviceGenerated {
		logger.WarnContext(ctx, "Skipping unknown event type", "type", evt.Type, log.FieldEventID, evt.ID)
		return nil
	}
	metrics.EventsConsumed.WithLabelValues(evt.Operation, evt.Source).Inc()
	logger.InfoContext(ctx, "Advice served",
		log.FieldEventID, evt.ID,
		log.FieldRequestID, evt.RequestID,
		log.FieldOperation, evt.Operation,
		log.FieldPersona, evt.Persona,
		log.FieldSource, evt.Source,
		"served_at", evt.Timestamp)
	return nil
}
