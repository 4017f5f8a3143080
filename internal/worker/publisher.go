package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// SeriesEnqueuer enqueues series materialization jobs. The API handlers
// depend on this rather than on Pub/Sub directly so tests can capture the
// published message.
type SeriesEnqueuer interface {
	EnqueueSeries(ctx context.Context, msg SeriesMessage) error
}

// Publisher publishes worker jobs to a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the job publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPublisher creates a new job publisher.
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

// EnqueueSeries publishes a series materialization job and waits for the
// server acknowledgement.
func (p *Publisher) EnqueueSeries(ctx context.Context, msg SeriesMessage) error {
	msg.JobType = JobTypeSeriesMaterialize

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding series message: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing series message: %w", err)
	}

	p.logger.Info().
		Str("topic", p.topicName).
		Str("message_id", id).
		Str("series_id", msg.SeriesID).
		Msg("series job enqueued")
	return nil
}

// Close stops the publisher and releases the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
