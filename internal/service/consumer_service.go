package service

import (
	"context"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder exports events off the process, e.g. to NATS JetStream.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// SessionNotifier pushes events to the clients connected to a session.
type SessionNotifier interface {
	PushEvent(event events.Event)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	eventLog   logger.ILogger
	forwarder  EventForwarder
	notifier   SessionNotifier
}

// NewConsumerService wires the session event trail. forwarder and notifier may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	eventLog logger.ILogger,
	forwarder EventForwarder,
	notifier SessionNotifier,
) IConsumerService {
	if topicName == "" {
		topicName = SessionEventsTopic
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		eventLog:   eventLog,
		forwarder:  forwarder,
		notifier:   notifier,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Every message is acked: a bad payload would never parse on redelivery either.
	defer msg.Ack()

	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.eventLog.Error("ConsumerService", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	details := make(map[string]interface{}, len(event.Data)+1)
	for k, v := range event.Data {
		details[k] = v
	}
	details["occurred_at"] = event.OccurredAt
	cs.eventLog.Info("SessionEvent", event.Type, details)

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			cs.eventLog.Warn("ConsumerService", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	if cs.notifier != nil {
		cs.notifier.PushEvent(event)
	}
}
