package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourorg/pdf-service/pkg/servicebusclient"
	"github.com/yourorg/pdf-service/pkg/utils"
)

// EventCreated is the event type published for every stored artifact.
const EventCreated = "artifact.created"

// Event is the JSON body of an artifact event.
type Event struct {
	Type        string    `json:"type"`
	ArtifactID  string    `json:"artifact_id"`
	Owner       string    `json:"owner"`
	Operation   string    `json:"operation"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher announces stored artifacts on a Service Bus queue or topic.
type Publisher struct {
	bus   servicebusclient.ServiceBusClient
	queue string
}

// NewPublisher returns a Publisher, or nil when no bus or queue is configured.
func NewPublisher(bus servicebusclient.ServiceBusClient, queue string) *Publisher {
	if bus == nil || queue == "" {
		return nil
	}
	return &Publisher{bus: bus, queue: queue}
}

// PublishCreated sends one artifact.created event per artifact. Each message
// id is the artifact id, so a retried publish is dropped by duplicate
// detection on the broker.
func (p *Publisher) PublishCreated(ctx context.Context, artifacts []*Artifact) error {
	msgs := make([]servicebusclient.OutgoingMessage, 0, len(artifacts))
	for _, a := range artifacts {
		body, err := json.Marshal(Event{
			Type:        EventCreated,
			ArtifactID:  a.ID,
			Owner:       a.Owner,
			Operation:   a.Operation,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			URL:         a.URL,
			CreatedAt:   a.CreatedAt,
		})
		if err != nil {
			return utils.Permanent(fmt.Errorf("failed to encode event for %s: %w", a.ID, err))
		}
		msgs = append(msgs, servicebusclient.OutgoingMessage{
			ID:          a.ID,
			Subject:     EventCreated,
			ContentType: "application/json",
			Body:        body,
			Properties: map[string]interface{}{
				"owner":     a.Owner,
				"operation": a.Operation,
			},
		})
	}
	return p.bus.Publish(ctx, p.queue, msgs...)
}
