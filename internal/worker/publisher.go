package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher dispatches export jobs onto a Pub/Sub topic. It implements
// export.Dispatcher; the server-assigned message id becomes the job's
// trigger id.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPublisher creates a new export job publisher.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Dispatch publishes the export trigger and waits for the server ack.
func (p *Publisher) Dispatch(ctx context.Context, jobID string) (string, error) {
	data, err := json.Marshal(ExportMessage{JobID: jobID})
	if err != nil {
		return "", fmt.Errorf("encoding export message: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	messageID, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing export message: %w", err)
	}

	p.logger.Debug().
		Str("job_id", jobID).
		Str("message_id", messageID).
		Str("topic", p.topicName).
		Msg("export job dispatched")

	return messageID, nil
}

// Close stops the publisher and releases the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
