package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/scan"
)

// Job types carried in Pub/Sub messages.
const (
	JobTypeBrokerScan      = "broker_scan"
	JobTypeExposureMonitor = "exposure_monitor"
)

// Message is the Pub/Sub job envelope.
type Message struct {
	JobType string `json:"job_type"`
	ScanID  string `json:"scan_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// PubSubHandler consumes job messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	scans            *scan.Service
	monitor          *MonitorJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Scans            *scan.Service
	Monitor          *MonitorJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Scans can take a while against slow broker sites.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 20 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		scans:            cfg.Scans,
		monitor:          cfg.Monitor,
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

	var job Message
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch job.JobType {
	case JobTypeBrokerScan:
		err = h.handleBrokerScan(ctx, job)
	case JobTypeExposureMonitor:
		err = h.handleExposureMonitor(ctx)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", job.JobType).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleBrokerScan(ctx context.Context, job Message) error {
	if job.ScanID == "" || job.UserID == "" {
		return fmt.Errorf("broker_scan job missing scan_id or user_id")
	}
	return h.scans.Run(ctx, job.ScanID, job.UserID)
}

func (h *PubSubHandler) handleExposureMonitor(ctx context.Context) error {
	result := h.monitor.Run(ctx)
	if result.Failed > result.Checked {
		return fmt.Errorf("too many re-check failures: %d failed, %d checked", result.Failed, result.Checked)
	}
	return nil
}
