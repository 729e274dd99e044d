// Package servicebusclient publishes events to Azure Service Bus queues and
// topics, with an in-memory stand-in for local runs and tests.
package servicebusclient

import (
	"context"
	"time"
)

// ServiceBusClient publishes messages to a queue or topic.
type ServiceBusClient interface {
	// Publish sends msgs to destination in order. Messages are batched;
	// a failure may leave a prefix of msgs sent, so callers that retry
	// should set stable message ids for duplicate detection.
	Publish(ctx context.Context, destination string, msgs ...OutgoingMessage) error

	// Close releases senders and the underlying connection.
	Close(ctx context.Context) error
}

// OutgoingMessage is a message to publish. An empty ID gets a random one.
type OutgoingMessage struct {
	ID          string
	Subject     string
	ContentType string
	Body        []byte
	Properties  map[string]interface{}
}

// Message is a message as it was published.
type Message struct {
	OutgoingMessage
	EnqueuedAt time.Time
}
