package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubSink publishes verdicts to a Pub/Sub topic.
type pubsubSink struct {
	id     string
	attrs  []string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newPubSubSink(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	var opts []option.ClientOption
	if cfg.PubSub.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.PubSub.Endpoint))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubSink{
		id:     cfg.ID,
		attrs:  cfg.Attributes,
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
		log:    log,
	}, nil
}

func (p *pubsubSink) ID() string   { return p.id }
func (p *pubsubSink) Type() string { return TypePubSub }

// Publish waits for the server to acknowledge the message.
func (p *pubsubSink) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	id, err := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: evt.attributes(p.attrs),
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish verdict to pubsub: %w", err)
	}
	p.log.DebugObj("verdict published", "publisher_pubsub_delivery", map[string]any{
		"publisher_id": p.id,
		"message_id":   id,
		"status":       evt.Status,
	})
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubSink) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
