// Package worker provides background export job processing for sendroom.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Runner executes one export job by id. Satisfied by export.Orchestrator.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	runner           Runner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Runner           Runner
	Logger           zerolog.Logger
}

// ExportMessage is the trigger payload for one export job.
type ExportMessage struct {
	JobID string `json:"job_id"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings. An export runs many sequential archive
	// calls, so the ack extension window has to cover the whole job, and
	// concurrency stays low to bound archive-worker fan-out.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var exportMsg ExportMessage
	if err := json.Unmarshal(msg.Data, &exportMsg); err != nil {
		// A malformed payload never becomes parseable; redelivering it just
		// loops. Ack and drop.
		logger.Error().Err(err).Msg("failed to parse message, dropping")
		msg.Ack()
		return
	}
	if exportMsg.JobID == "" {
		logger.Error().Msg("message has no job id, dropping")
		msg.Ack()
		return
	}

	// Run returns an error only when the job record could not be read at
	// all; export failures are recorded on the job and acked. Redelivery
	// after a transient store error is safe: a picked-up job is skipped.
	if err := h.runner.Run(ctx, exportMsg.JobID); err != nil {
		logger.Error().Err(err).Str("job_id", exportMsg.JobID).Msg("export run failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_id", exportMsg.JobID).
		Dur("duration", time.Since(startTime)).
		Msg("export message handled")

	msg.Ack()
}
