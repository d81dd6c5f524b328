// Package classifier triggers post-crawl page classification.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// crawlCompleteEvent is the message published when a crawl finishes and the
// caller asked for classification.
type crawlCompleteEvent struct {
	SiteID string `json:"site_id"`
}

const eventAttribute = "site_crawl_complete"

// PubSub publishes classification requests to a Google Cloud Pub/Sub topic.
// The downstream classification worker consumes them asynchronously.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub connects to Pub/Sub and binds the topic.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSub, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("pubsub topic id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSub{
		client: client,
		topic:  client.Topic(topicID),
		logger: logger,
	}, nil
}

// Classify publishes a classification request for the site and waits for
// the broker to acknowledge it.
func (p *PubSub) Classify(ctx context.Context, siteID string) error {
	if siteID == "" {
		return fmt.Errorf("site id is required")
	}
	data, err := json.Marshal(crawlCompleteEvent{SiteID: siteID})
	if err != nil {
		return fmt.Errorf("marshal classify event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": eventAttribute},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish classify event: %w", err)
	}
	p.logger.Debug("classification requested",
		zap.String("site_id", siteID),
		zap.String("message_id", id),
	)
	return nil
}

// Close stops the topic's publish goroutines and closes the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
