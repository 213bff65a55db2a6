package service

import (
	"context"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EnvelopeRelay forwards a lifecycle event elsewhere (NATS, live sockets).
type EnvelopeRelay interface {
	PublishEnvelope(ctx context.Context, env events.Envelope) error
}

type IConsumerService interface {
	// Consume blocks until ctx is done or the subscription closes.
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	relays     []EnvelopeRelay
	logger     logger.ILogger
}

// NewConsumerService reads the lifecycle topic, logs every event and hands it
// to each relay. Nil relays are skipped.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	log logger.ILogger,
	relays ...EnvelopeRelay,
) IConsumerService {
	var wired []EnvelopeRelay
	for _, r := range relays {
		if r != nil {
			wired = append(wired, r)
		}
	}
	if topicName == "" {
		topicName = events.LifecycleTopic
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		relays:     wired,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			cs.processMessage(ctx, msg)
		}
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	env, err := events.DecodeEnvelope(msg)
	if err != nil {
		cs.logger.Error(logger.ModuleEvents, "Dropping undecodable lifecycle message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{
		"event_id": env.ID,
		"type":     env.Type,
	}
	for _, k := range []string{"user_id", "subject", "ref", "auto"} {
		if v, ok := env.Data[k]; ok {
			details[k] = v
		}
	}
	if env.Type == events.TypeCommitFailed {
		cs.logger.Warn(logger.ModuleEvents, "Contact commit failed", details)
	} else {
		cs.logger.Info(logger.ModuleEvents, "Lifecycle event", details)
	}

	// The in-process bus redelivers a Nack immediately; a NATS outage would spin.
	for _, relay := range cs.relays {
		if err := relay.PublishEnvelope(ctx, env); err != nil {
			cs.logger.Warn(logger.ModuleEvents, "Relay failed", map[string]interface{}{
				"event_id": env.ID,
				"type":     env.Type,
				"error":    err.Error(),
			})
		}
	}
	msg.Ack()
}
