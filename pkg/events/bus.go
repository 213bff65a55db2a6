package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// LifecycleTopic is the in-process topic carrying contact lifecycle events.
const LifecycleTopic = "contact-lifecycle"

// Envelope is the wire form of an event on the bus.
type Envelope struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func (e Envelope) Event() BaseEvent {
	return BaseEvent{Type: e.Type, Data: e.Data, OccurredAt: e.OccurredAt}
}

// BusPublisher publishes events onto a watermill topic.
type BusPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewBusPublisher(publisher message.Publisher, topic string) *BusPublisher {
	if topic == "" {
		topic = LifecycleTopic
	}
	return &BusPublisher{publisher: publisher, topic: topic}
}

func (b *BusPublisher) Publish(ctx context.Context, event Event) error {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       event.EventType(),
		OccurredAt: event.Timestamp(),
		Data:       event.Payload(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", env.Type, err)
	}

	msg := message.NewMessage(env.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", env.Type)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", env.Type, err)
	}
	return nil
}

// DecodeEnvelope parses a bus message produced by BusPublisher.
func DecodeEnvelope(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return env, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return env, nil
}
