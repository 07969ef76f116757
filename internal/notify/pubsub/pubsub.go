// Package pubsub publishes notifications to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// Payload is the JSON body of each published message.
type Payload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	PageURL string `json:"page_url,omitempty"`
}

// Notifier wraps a Pub/Sub topic handle.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// Open creates a client for projectID and a topic handle for topicID.
func Open(ctx context.Context, projectID, topicID string) (*Notifier, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{client: client, topic: client.Topic(topicID)}, nil
}

// New creates a Notifier for the provided topic. The caller owns it.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// Notify marshals the notification to JSON and waits for the server ID.
func (n *Notifier) Notify(ctx context.Context, msg watcher.Notification) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if _, err := n.topic.Publish(ctx, m).Get(ctx); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func buildMessage(msg watcher.Notification) (*pubsub.Message, error) {
	data, err := json.Marshal(Payload{
		Title:   msg.Title,
		Message: msg.Message,
		RunID:   msg.RunID,
		PageURL: msg.PageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	attrs := map[string]string{"title": msg.Title}
	if msg.RunID != "" {
		attrs["run_id"] = msg.RunID
	}
	return &pubsub.Message{Data: data, Attributes: attrs}, nil
}

// Close flushes pending messages and releases the client when Open created it.
func (n *Notifier) Close() error {
	if n.client == nil {
		return nil
	}
	if n.topic != nil {
		n.topic.Stop()
	}
	return n.client.Close()
}
