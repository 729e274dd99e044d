package servicebusclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryServiceBusClient keeps published messages in memory, per destination.
type MemoryServiceBusClient struct {
	queues map[string][]Message
	mu     sync.RWMutex
}

// NewMemoryServiceBusClient creates an empty in-memory client.
func NewMemoryServiceBusClient() *MemoryServiceBusClient {
	return &MemoryServiceBusClient{
		queues: make(map[string][]Message),
	}
}

// Publish appends msgs to destination. Either all of them are stored or none.
func (m *MemoryServiceBusClient) Publish(ctx context.Context, destination string, msgs ...OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return fmt.Errorf("destination is required")
	}

	now := time.Now().UTC()
	stored := make([]Message, len(msgs))
	for i, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		msg.Body = append([]byte(nil), msg.Body...)
		stored[i] = Message{OutgoingMessage: msg, EnqueuedAt: now}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[destination] = append(m.queues[destination], stored...)
	return nil
}

// Messages returns a copy of everything published to destination, oldest first.
func (m *MemoryServiceBusClient) Messages(destination string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.queues[destination]...)
}

// Close is a no-op.
func (m *MemoryServiceBusClient) Close(ctx context.Context) error {
	return nil
}
