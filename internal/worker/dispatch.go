package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/scan"
)

// ScanPublisher dispatches scan jobs to the worker via Pub/Sub.
type ScanPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// ScanPublisherConfig holds configuration for the scan publisher.
type ScanPublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewScanPublisher creates a publisher for scan jobs.
func NewScanPublisher(ctx context.Context, cfg ScanPublisherConfig) (*ScanPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &ScanPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Dispatch publishes a broker scan job and waits for the server ack.
func (p *ScanPublisher) Dispatch(ctx context.Context, job scan.Job) error {
	data, err := json.Marshal(Message{
		JobType: JobTypeBrokerScan,
		ScanID:  job.ScanID,
		UserID:  job.UserID,
	})
	if err != nil {
		return fmt.Errorf("encoding scan job: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing scan job: %w", err)
	}

	p.logger.Debug().
		Str("topic", p.topicName).
		Str("message_id", id).
		Str("scan_id", job.ScanID).
		Msg("scan job dispatched")
	return nil
}

// Close stops the publisher and closes the Pub/Sub client.
func (p *ScanPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

var _ scan.Dispatcher = (*ScanPublisher)(nil)
